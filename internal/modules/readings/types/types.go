package types

import "time"

// Reading is one stored sensor sample. ID and CreatedAt are assigned by
// storage on insert and never change.
type Reading struct {
	ID        int64     `json:"id"`
	PH        float64   `json:"ph"`
	NTU       float64   `json:"ntu"`
	TDS       float64   `json:"tds"`
	CreatedAt time.Time `json:"created_at"`
}

// Payload is the raw submission as received from a form body, a JSON body
// or an MQTT message, keyed by field name.
type Payload map[string]string

const (
	FieldPH  = "ph"
	FieldNTU = "ntu"
	FieldTDS = "tds"
)

// RequiredFields lists the payload keys every submission must carry.
var RequiredFields = []string{FieldPH, FieldNTU, FieldTDS}
