package domain

// Company is one entry of the curated universe. It is immutable during a run.
type Company struct {
	Name          string
	Industry      string
	Investors     string
	Stage         string
	AmountDisplay string
	IsNew         bool
	Week          string
}
