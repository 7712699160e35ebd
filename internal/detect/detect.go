package detect

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// DefaultSource is returned when neither markers nor date patterns decide.
// Users correct a wrong guess by selecting the bank explicitly.
const DefaultSource = model.SourceTrustee

// Method names the rule that produced a detection result.
type Method string

const (
	MethodMarker      Method = "marker"
	MethodDatePattern Method = "date-pattern"
	MethodDefault     Method = "default"
)

// Result is a detection outcome.
type Result struct {
	Source model.Source `json:"source"`
	Method Method       `json:"method"`
}

type bank struct {
	source  model.Source
	markers []string
	pattern *regexp.Regexp
}

var banks = []bank{
	{
		source:  model.SourceTrustee,
		markers: []string{"Trustee Plus", "trustee.plus", "TRUSTEE"},
		// 2024.03.05, 14:30
		pattern: regexp.MustCompile(`\d{4}\.\d{2}\.\d{2},\s*\d{2}:\d{2}`),
	},
	{
		source:  model.SourcePrivat,
		markers: []string{"ПриватБанк", "PrivatBank", "privatbank.ua", "Приватбанк"},
		// 05.03.2024 on its own line, then a masked card 123456******7890.
		pattern: regexp.MustCompile(`(?m)^[ \t]*\d{2}\.\d{2}\.\d{4}(?:[ \t]+\d{2}:\d{2}(?::\d{2})?)?[ \t]*\r?\n[ \t]*\d{6}\*{2,}\d{4}`),
	},
}

// Detect classifies extracted PDF text as one of the PDF bank formats.
func Detect(text string) model.Source {
	return Classify(text).Source
}

// Classify is Detect with the deciding rule attached.
func Classify(text string) Result {
	var byMarker []model.Source
	folded := ""
	for _, b := range banks {
		if containsAny(text, b.markers) {
			byMarker = append(byMarker, b.source)
			continue
		}
		if folded == "" {
			folded = cases.Fold().String(text)
		}
		if containsAnyFolded(folded, b.markers) {
			byMarker = append(byMarker, b.source)
		}
	}
	if len(byMarker) == 1 {
		return Result{Source: byMarker[0], Method: MethodMarker}
	}

	var byPattern []model.Source
	for _, b := range banks {
		if b.pattern.MatchString(text) {
			byPattern = append(byPattern, b.source)
		}
	}
	if len(byPattern) == 1 {
		return Result{Source: byPattern[0], Method: MethodDatePattern}
	}

	return Result{Source: DefaultSource, Method: MethodDefault}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func containsAnyFolded(folded string, needles []string) bool {
	fold := cases.Fold()
	for _, n := range needles {
		if strings.Contains(folded, fold.String(n)) {
			return true
		}
	}
	return false
}
