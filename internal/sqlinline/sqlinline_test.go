package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestQueriesCarryUniqueMarkers(t *testing.T) {
	queries := map[string]string{
		"QSelectProfileByID":    QSelectProfileByID,
		"QSelectProfileByEmail": QSelectProfileByEmail,
		"QDecrementCredit":      QDecrementCredit,
		"QUpdateProfilePlan":    QUpdateProfilePlan,
		"QInsertUsageLog":       QInsertUsageLog,
		"QCountUsageSince":      QCountUsageSince,
	}
	seen := make(map[string]string, len(queries))
	for name, q := range queries {
		first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(q), "\n", 2)[0])
		if !markerPattern.MatchString(first) {
			t.Fatalf("%s: missing or invalid marker %q", name, first)
		}
		if other, dup := seen[first]; dup {
			t.Fatalf("%s reuses the marker of %s", name, other)
		}
		seen[first] = name
	}
}

func TestDecrementIsGuarded(t *testing.T) {
	if !strings.Contains(QDecrementCredit, "credits_remaining > 0") {
		t.Fatalf("credit decrement must be conditional on a positive balance")
	}
}
