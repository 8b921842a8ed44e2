package models

import "encoding/json"

// Requests for curve HTTP endpoints. Numeric query values are kept as
// strings and validated as numbers so a missing value is distinguishable
// from zero.

type CurveNameRequest struct {
	Name string `param:"name" json:"-" validate:"required,max=128,excludesall=/?#*"`
}

// DefineCurveRequest carries the raw curve body; it is coerced by
// curve.ParseConfig in the handler.
type DefineCurveRequest struct {
	Name string         `param:"name" json:"-" validate:"required,max=128,excludesall=/?#*"`
	Raw  map[string]any `json:"-" validate:"required"`
}

func (r *DefineCurveRequest) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &r.Raw)
}

type PointRequest struct {
	Name string `param:"name" json:"-" validate:"required"`
	T    string `query:"t" json:"t" validate:"required,numeric"`
}

type ForwardRequest struct {
	Name string `param:"name" json:"-" validate:"required"`
	From string `query:"from" json:"from" validate:"required,numeric"`
	To   string `query:"to" json:"to" validate:"required,numeric"`
}

type SweepRequest struct {
	Name string `param:"name" json:"-" validate:"required"`
	From string `query:"from" json:"from" validate:"omitempty,numeric"`
	To   string `query:"to" json:"to" validate:"omitempty,numeric"`
	Step string `query:"step" json:"step" validate:"omitempty,numeric"`
}

type PointResponse struct {
	Curve  string  `json:"curve"`
	Method string  `json:"method"`
	T      float64 `json:"t"`
	Value  float64 `json:"value"`
}

type ForwardResponse struct {
	Curve  string  `json:"curve"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// SubmitSweepRequest asks for an asynchronous sweep. Missing bounds fall
// back to the configured grid.
type SubmitSweepRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=100,dive,required,max=128"`
	From  *float64 `json:"from"`
	To    *float64 `json:"to"`
	Step  *float64 `json:"step"`
}

type SweepJobRequest struct {
	ID string `param:"id" json:"-" validate:"required,uuid"`
}
