package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waterwatch-server/internal/mqtt"
)

// generator produces a slow random walk around drinkable water values,
// with an occasional turbid spike.
type generator struct {
	rng *rand.Rand
	ph  float64
	ntu float64
	tds float64
}

func newGenerator(seed int64) *generator {
	return &generator{
		rng: rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)),
		ph:  7.2,
		ntu: 0.6,
		tds: 180,
	}
}

func (g *generator) next() mqtt.ProbeReading {
	g.ph = clamp(g.ph+g.rng.NormFloat64()*0.05, 5.5, 9.5)
	g.ntu = clamp(g.ntu+g.rng.NormFloat64()*0.1, 0.1, 3)
	g.tds = clamp(g.tds+g.rng.NormFloat64()*5, 50, 900)

	ntu := g.ntu
	if g.rng.IntN(20) == 0 {
		ntu += 2 + g.rng.Float64()*6
	}
	return mqtt.ProbeReading{
		PH:  round(g.ph, 2),
		NTU: round(ntu, 2),
		TDS: round(g.tds, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type httpSender struct {
	client   *http.Client
	endpoint string
}

func newHTTPSender(baseURL string) *httpSender {
	return &httpSender{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: strings.TrimRight(baseURL, "/") + "/insert",
	}
}

// send posts one reading as form data, the format the original firmware used.
func (s *httpSender) send(ctx context.Context, r mqtt.ProbeReading) error {
	form := url.Values{}
	form.Set("ph", strconv.FormatFloat(r.PH, 'f', -1, 64))
	form.Set("ntu", strconv.FormatFloat(r.NTU, 'f', -1, 64))
	form.Set("tds", strconv.FormatFloat(r.TDS, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("insert: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
