package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wealthpath/goalengine/internal/models"
)

// Key is the stable, content-addressed fingerprint of a SimulationInputs
// value.
type Key string

// CanonicalKey derives Key from inputs: sorted map keys, numerics rounded to
// 12 significant digits, every result-affecting field included. Two
// logically equal inputs always produce the same key; two different ones
// produce different keys with overwhelming probability.
func CanonicalKey(inputs models.SimulationInputs) Key {
	var b strings.Builder
	fmt.Fprintf(&b, "initial=%s;", round12(inputs.InitialAmount))
	fmt.Fprintf(&b, "years=%d;", inputs.Years)
	fmt.Fprintf(&b, "trials=%d;", inputs.TrialCount)
	fmt.Fprintf(&b, "seed=%d;", inputs.RootSeed)

	b.WriteString("contrib=[")
	for i, c := range inputs.ContributionSchedule {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(round12(c))
	}
	b.WriteString("];")

	b.WriteString("alloc=[")
	for y, alloc := range inputs.AllocationSchedule {
		if y > 0 {
			b.WriteByte(';')
		}
		b.WriteString(canonicalAllocation(alloc))
	}
	b.WriteString("];")

	b.WriteString("assume=[")
	classes := make([]string, 0, len(inputs.Assumptions))
	for class := range inputs.Assumptions {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)
	for i, class := range classes {
		if i > 0 {
			b.WriteByte(',')
		}
		a := inputs.Assumptions[models.AssetClass(class)]
		fmt.Fprintf(&b, "%s:%s:%s", class, round12(a.ExpectedReturn), round12(a.Volatility))
	}
	b.WriteString("];")

	if inputs.Shock != nil {
		fmt.Fprintf(&b, "shock=%s:%s", round12(inputs.Shock.AnnualProbability), round12(inputs.Shock.Severity))
	} else {
		b.WriteString("shock=none")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Key(hex.EncodeToString(sum[:]))
}

func canonicalAllocation(alloc map[models.AssetClass]float64) string {
	classes := make([]string, 0, len(alloc))
	for class := range alloc {
		classes = append(classes, string(class))
	}
	sort.Strings(classes)
	var b strings.Builder
	for i, class := range classes {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", class, round12(alloc[models.AssetClass(class)]))
	}
	return b.String()
}

// round12 normalizes a float to 12 significant digits so that
// near-identical floating point noise (e.g. 0.1+0.2 vs 0.3) doesn't split
// one logical input into two cache keys.
func round12(v float64) string {
	if v == 0 {
		return "0"
	}
	mag := math.Floor(math.Log10(math.Abs(v))) + 1
	scale := math.Pow(10, 12-mag)
	rounded := math.Round(v*scale) / scale
	return fmt.Sprintf("%.12g", rounded)
}
