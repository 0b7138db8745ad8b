package cell

import (
	"fmt"
	"sort"
	"strconv"
)

// Type is a developmental stage.
type Type int

// Developmental stages. Germinating cells become RBr at germTime, RBr cells
// commit to RBe stochastically, RBe cells exit replication as IB, and IB cells
// mature through pre-EB into infectious EB. Dormant is only entered when the
// dormant switch is configured.
const (
	Germinating Type = 0 // germinating EB
	RBr         Type = 1 // replicating RB
	RBe         Type = 2 // early-committed RB
	IB          Type = 3
	PreEB       Type = 4
	EB          Type = 5 // terminal
	Dormant     Type = 6
)

// NumTypes is the number of defined stages.
const NumTypes = 7

var typeNames = [NumTypes]string{
	Germinating: "germinating",
	RBr:         "RBr",
	RBe:         "RBe",
	IB:          "IB",
	PreEB:       "preEB",
	EB:          "EB",
	Dormant:     "dormant",
}

// Valid reports whether t is one of the seven defined stages.
func (t Type) Valid() bool {
	return t >= Germinating && t <= Dormant
}

// String returns the stage name, or "type(N)" for undefined values.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a stage name (as returned by String) or its number.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Type(n).Valid() {
		return Type(n), nil
	}
	return 0, fmt.Errorf("unknown cell type %q", s)
}

// Gene indexes the rnaamt/geneamt arrays.
type Gene int

const (
	Reporter Gene = 0 // hctA promoter reporter
	Euo      Gene = 1 // early repressor
	HctA     Gene = 2
	HctB     Gene = 3
)

// NumGenes is the number of tracked RNA species and gene products.
const NumGenes = 4

// Levels holds one value per tracked gene.
type Levels [NumGenes]float64

// Color is an RGB triple used for visualization only.
type Color [3]float64

// ID identifies a cell. IDs are assigned by the host and never reused.
type ID int64

// State is the record for one live cell.
//
// Volume, CellAge, Species and Signals are owned by the host; the engine only
// reads Volume and CellAge and leaves Species and Signals untouched.
type State struct {
	ID       ID   `json:"id"`
	CellType Type `json:"cell_type"`

	Volume  float64 `json:"volume"`
	CellAge int64   `json:"cell_age"`

	TargetVol    float64 `json:"target_vol"`
	GrowthRate   float64 `json:"growth_rate"`
	ParentGrowth float64 `json:"parent_growth"` // growth rate at the ancestor's RBr commitment
	ParentAge    float64 `json:"parent_age"`    // cellAge/10 when division was last requested

	Color   Color  `json:"color"`
	RNAAmt  Levels `json:"rnaamt"`
	GeneAmt Levels `json:"geneamt"`

	GermTime      float64    `json:"germ_time"`
	PercentChance [2]float64 `json:"percentchance"`
	Coinflip      int        `json:"coinflip"`
	DivideFlag    bool       `json:"divide_flag"`

	Species []float64 `json:"species"`
	Signals []float64 `json:"signals"`
}

// Population maps stable identifiers to live cells.
type Population map[ID]*State

// IDs returns the population's identifiers in ascending order.
func (p Population) IDs() []ID {
	ids := make([]ID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Counts returns the number of cells in each stage. Cells with undefined
// stages are not counted.
func (p Population) Counts() [NumTypes]int {
	var counts [NumTypes]int
	for _, s := range p {
		if s != nil && s.CellType.Valid() {
			counts[s.CellType]++
		}
	}
	return counts
}
