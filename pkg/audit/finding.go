package audit

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

// Finding is one observation attached to an audit report.
type Finding struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

func integrityFinding(r Result, detail string) Finding {
	return Finding{Code: r.String(), Category: "integrity", Detail: detail}
}

// verdictFindings turns every failing verdict check into a finding.
func verdictFindings(v *fairness.Verdict) []Finding {
	var out []Finding
	for _, reason := range v.Reasons {
		f := Finding{Code: string(reason), Category: reason.Category()}
		switch reason {
		case fairness.ReasonHardConstraint:
			f.Detail = "failed constraints: " + strings.Join(v.ConstraintFailures, ", ")
		case fairness.ReasonSuboptimal:
			f.Detail = fmt.Sprintf("utility %d below best qualifying utility %d", v.Utility, v.BestUtility)
		case fairness.ReasonDisclosure:
			kinds := make([]string, 0, len(v.DisclosureFindings))
			for _, d := range v.DisclosureFindings {
				kinds = append(kinds, fmt.Sprintf("%s %s (prominence %d, required %d)", d.Relationship, d.Violation, d.Prominence, d.Required))
			}
			f.Detail = strings.Join(kinds, "; ")
		case fairness.ReasonManipulation:
			if v.Manipulation.Flagged {
				f.Detail = fmt.Sprintf("commercial product chosen over %s (utility %d)", v.Manipulation.BetterAlternativeID, v.Manipulation.BetterAlternativeUtil)
			} else {
				f.Detail = "commercial relationship without compliant disclosure or optimality"
			}
		case fairness.ReasonProductNotInCatalog:
			f.Detail = fmt.Sprintf("product %s is not in the catalog", v.ProductID)
		default:
			f.Detail = strings.ToLower(strings.ReplaceAll(string(reason), "_", " "))
		}
		out = append(out, f)
	}
	return out
}
