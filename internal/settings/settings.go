// Package settings loads and validates a casm-monte settings document and
// converts it into the typed inputs of the engine, driver and archive.
//
// Documents may be JSON, CUE or YAML. Every document is unified with the
// embedded CUE schema, which supplies types, enums and defaults, then decoded
// into Settings and checked with struct validation for the cross-field rules
// the schema cannot express.
package settings

// Settings is the decoded settings document.
type Settings struct {
	Ensemble    string       `json:"ensemble" validate:"oneof=canonical"`
	Method      string       `json:"method" validate:"oneof=metropolis"`
	Debug       bool         `json:"debug"`
	Model       Model        `json:"model"`
	Supercell   [][]int      `json:"supercell" validate:"len=3,dive,len=3"`
	Driver      Driver       `json:"driver"`
	Data        Data         `json:"data"`
	Enumeration *Enumeration `json:"enumeration,omitempty"`
}

// Model describes the prim occupants and the cluster expansion.
type Model struct {
	Sublattices   [][]string `json:"sublattices" validate:"min=1,dive,min=1,dive,required"`
	Evaluator     Evaluator  `json:"evaluator"`
	ECI           []float64  `json:"eci" validate:"min=1"`
	Normalization string     `json:"normalization" validate:"oneof=per_unitcell per_atom"`
}

// Evaluator selects the correlation evaluator.
type Evaluator struct {
	Kind string `json:"kind" validate:"oneof=nearest_neighbor"`
	Axes int    `json:"axes" validate:"min=1,max=3"`
}

// Conditions is the document form of one thermodynamic condition. As an
// increment, components may be negative.
type Conditions struct {
	Temperature float64            `json:"temperature"`
	CompN       map[string]float64 `json:"comp_n"`
	Tolerance   float64            `json:"tolerance" validate:"gt=0"`
}

// Motif selects the initial configuration.
type Motif struct {
	Kind       string `json:"kind" validate:"oneof=default occupation configdof configname"`
	Occupation []int  `json:"occupation,omitempty" validate:"required_if=Kind occupation"`
	ConfigDoF  string `json:"configdof,omitempty" validate:"required_if=Kind configdof"`
	ConfigName string `json:"configname,omitempty" validate:"required_if=Kind configname"`
}

// Driver configures the conditions sweep.
type Driver struct {
	Mode          string       `json:"mode" validate:"oneof=single custom incremental"`
	DependentRuns bool         `json:"dependent_runs"`
	Seed          *uint64      `json:"seed,omitempty"`
	Motif         Motif        `json:"motif"`
	Initial       *Conditions  `json:"initial_conditions,omitempty"`
	Final         *Conditions  `json:"final_conditions,omitempty"`
	Incremental   *Conditions  `json:"incremental_conditions,omitempty"`
	Custom        []Conditions `json:"custom_conditions,omitempty" validate:"dive"`
}

// Measurement names a sampled property; a precision makes it a
// convergence criterion.
type Measurement struct {
	Quantity  string   `json:"quantity" validate:"required"`
	Precision *float64 `json:"precision,omitempty"`
}

// Storage selects the results formats.
type Storage struct {
	OutputFormat      []string `json:"output_format" validate:"dive,oneof=csv json"`
	WriteObservations bool     `json:"write_observations"`
}

// Data configures sampling and run length.
type Data struct {
	SampleBy     string  `json:"sample_by" validate:"oneof=pass step"`
	SamplePeriod int     `json:"sample_period" validate:"min=1"`
	Confidence   float64 `json:"confidence" validate:"gt=0,lt=1"`
	CheckPeriod  int     `json:"check_period" validate:"min=1"`

	NPass   int `json:"N_pass,omitempty"`
	NStep   int `json:"N_step,omitempty"`
	NSample int `json:"N_sample,omitempty"`

	MinPass   int `json:"min_pass,omitempty"`
	MinStep   int `json:"min_step,omitempty"`
	MinSample int `json:"min_sample,omitempty"`
	MaxPass   int `json:"max_pass,omitempty"`
	MaxStep   int `json:"max_step,omitempty"`
	MaxSample int `json:"max_sample,omitempty"`

	EquilPassesFirstRun *int `json:"equilibration_passes_first_run,omitempty"`
	EquilPassesEachRun  *int `json:"equilibration_passes_each_run,omitempty"`

	Measurements []Measurement `json:"measurements" validate:"dive"`
	Storage      Storage       `json:"storage"`
}

// Enumeration configures the hall of fame.
type Enumeration struct {
	Check           string `json:"check"`
	Metric          string `json:"metric"`
	SampleMode      string `json:"sample_mode" validate:"oneof=on_sample on_accept"`
	NConfig         int    `json:"N_config" validate:"min=1"`
	InsertCanonical bool   `json:"insert_canonical"`
	CheckExistence  bool   `json:"check_existence"`
	SaveConfigs     bool   `json:"save_configs"`
	DryRun          bool   `json:"dry_run"`
	OutputPeriod    int    `json:"output_period" validate:"min=1"`
	OutputFile      string `json:"output_file"`
}

// MustConverge reports whether any measurement carries a precision.
func (s *Settings) MustConverge() bool {
	for _, m := range s.Data.Measurements {
		if m.Precision != nil {
			return true
		}
	}
	return false
}

// WriteJSON reports whether results.json is written.
func (s *Settings) WriteJSON() bool { return s.hasFormat("json") }

// WriteCSV reports whether results.csv is written.
func (s *Settings) WriteCSV() bool { return s.hasFormat("csv") }

func (s *Settings) hasFormat(f string) bool {
	for _, v := range s.Data.Storage.OutputFormat {
		if v == f {
			return true
		}
	}
	return false
}
