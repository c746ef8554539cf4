package ruleset

import (
	"fmt"
	"math"
	"regexp"

	"github.com/cacmlabs/cacm/internal/model"
)

// Compare applies the rule's comparator to a baseline and new value.
// It returns true when the values are considered equivalent (no drift).
// A comparator that cannot run against the given value kinds returns an
// error; the engine downgrades that to a collection-gap finding rather than
// aborting the evaluation.
func Compare(rule Rule, old, new model.Value) (bool, error) {
	c := rule.Comparator
	if c == "" {
		c = CompareExact
	}

	switch c {
	case CompareExact:
		return old.Equal(new), nil

	case CompareSet:
		if old.Kind != model.KindSet || new.Kind != model.KindSet {
			return false, fmt.Errorf("set comparator on %s/%s values", old.Kind, new.Kind)
		}
		// Values deserialized from JSON may carry unsorted members; rebuild
		// before comparing.
		return model.SetValue(old.Set).Equal(model.SetValue(new.Set)), nil

	case CompareTolerance:
		if old.Kind != model.KindNumber || new.Kind != model.KindNumber {
			return false, fmt.Errorf("tolerance comparator on %s/%s values", old.Kind, new.Kind)
		}
		return math.Abs(old.Num-new.Num) <= rule.Tolerance, nil

	case CompareRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return false, fmt.Errorf("compile pattern %q: %w", rule.Pattern, err)
		}
		// The pattern describes the allowed shape: the new value passes as
		// long as it still matches, even when the literal text changed.
		return re.MatchString(new.String()), nil

	case CompareHash:
		if old.Kind != model.KindDigest || new.Kind != model.KindDigest {
			return false, fmt.Errorf("hash comparator on %s/%s values", old.Kind, new.Kind)
		}
		return old.Digest == new.Digest, nil
	}

	return false, fmt.Errorf("unknown comparator %q", c)
}
