package decompose

import (
	"fmt"
	"strings"
)

// LabelType groups generated columns by the component they contribute to
type LabelType int

const (
	LabelTypeGrowth LabelType = iota
	LabelTypeChangepoint
	LabelTypeSeasonality
	LabelTypeRegressor
)

// Label names a single generated design matrix column
type Label interface {
	String() string
	Get(string) (string, bool)
	Type() LabelType
}

const (
	GrowthLinear = "linear"
)

type Growth struct {
	Name string `json:"name"`
}

func NewGrowth(name string) *Growth {
	return &Growth{name}
}

func (g Growth) String() string {
	return fmt.Sprintf("growth_%s", g.Name)
}

// Get returns the value of an arbitrary label and whether the label exists
func (g Growth) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return g.Name, true
	}
	return "", false
}

func (g Growth) Type() LabelType {
	return LabelTypeGrowth
}

type ChangepointComp string

const (
	ChangepointCompBias  ChangepointComp = "bias"
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint is a level (bias) or trend (slope) shift starting at a point in time
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "changepoint_component":
		return string(c.ChangepointComp), true
	}
	return "", false
}

func (c Changepoint) Type() LabelType {
	return LabelTypeChangepoint
}

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

type Seasonality struct {
	Name        string      `json:"name"`
	FourierComp FourierComp `json:"fourier_component"`
	Order       int         `json:"order"`
}

func NewSeasonality(name string, fcomp FourierComp, order int) *Seasonality {
	return &Seasonality{name, fcomp, order}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return s.Name, true
	case "fourier_component":
		return string(s.FourierComp), true
	case "order":
		return fmt.Sprintf("%d", s.Order), true
	}
	return "", false
}

func (s Seasonality) Type() LabelType {
	return LabelTypeSeasonality
}

// Regressor is an external input column passed in by the caller
type Regressor struct {
	Index int `json:"index"`
}

func NewRegressor(idx int) *Regressor {
	return &Regressor{idx}
}

func (r Regressor) String() string {
	return fmt.Sprintf("reg_%d", r.Index)
}

func (r Regressor) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "index":
		return fmt.Sprintf("%d", r.Index), true
	}
	return "", false
}

func (r Regressor) Type() LabelType {
	return LabelTypeRegressor
}
