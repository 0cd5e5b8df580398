// Package validation runs the rule-based checks of a procurement contract:
// mandatory clauses, the contract price, the single-source foundation and
// party requisites. It also compares a contract with its procurement notice.
package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"ContractAuditor/internal/domain"
)

// DefaultFoundationThreshold is the price cap of a single-source small purchase.
var DefaultFoundationThreshold = decimal.NewFromInt(100000)

// foundationCitation matches "п. 4 ч. 1 ст. 93" and its spelled-out forms.
var foundationCitation = regexp.MustCompile(
	`(?i)(?:п\.|пункт[а-я]*)\s*4\s*(?:ч\.|част[а-я]*)\s*1\s*(?:ст\.|стать[а-я]*)\s*93(?:\D|$)`)

// Clause is a mandatory contract section. Phrasings are accepted section
// names; Related keywords indicate the section exists under another name.
type Clause struct {
	Name      string
	Phrasings []string
	Related   []string
}

// Requisite is a party registration detail looked up by any of its patterns.
type Requisite struct {
	Name     string
	Patterns []string
}

// DefaultClauses returns the mandatory sections of a 44-ФЗ contract.
func DefaultClauses() []Clause {
	return []Clause{
		{
			Name:      "предмет контракта",
			Phrasings: []string{"предмет контракта", "предмет договора", "i. предмет", "1. предмет"},
			Related:   []string{"поставщик", "заказчик", "товар", "продукция"},
		},
		{
			Name: "цена контракта",
			Phrasings: []string{"цена контракта", "цена договора", "стоимость", "ii. цена",
				"2. цена", "цена и порядок расчетов"},
			Related: []string{"рубл", "копеек", "сумма", "стоимость"},
		},
		{
			Name: "срок исполнения",
			Phrasings: []string{"срок исполнения", "срок поставки", "срок действия",
				"iii. порядок", "3. порядок", "дата начала", "дата окончания"},
		},
		{
			Name: "порядок оплаты",
			Phrasings: []string{"порядок оплаты", "условия оплаты", "расчеты", "оплата",
				"срок оплаты", "2.4", "2.5", "2.6"},
			Related: []string{"оплата", "платеж", "перечислен", "счет"},
		},
		{
			Name: "ответственность сторон",
			Phrasings: []string{"ответственность сторон", "ответственность", "штраф",
				"пеня", "неустойка", "vii. ответственность", "7. ответственность"},
			Related: []string{"штраф", "пеня", "ответственность", "нарушен"},
		},
		{
			Name: "условия расторжения",
			Phrasings: []string{"условия расторжения", "расторжение", "односторонний отказ",
				"xi. срок действия", "11. срок действия"},
			Related: []string{"расторжен", "отказ", "прекращен"},
		},
		{
			Name: "гарантийные обязательства",
			Phrasings: []string{"гарантийные обязательства", "гарантия", "гарантийный срок",
				"качество товара", "vi. качество", "6. качество"},
			Related: []string{"гарантия", "качество", "брак", "замен"},
		},
	}
}

// DefaultRequisites returns the registration details a contract should carry.
func DefaultRequisites() []Requisite {
	return []Requisite{
		{Name: "инн", Patterns: []string{"инн", "идентификационный номер"}},
		{Name: "расчетный счет", Patterns: []string{"расчетный счет", "р/с", "р/счет"}},
		{Name: "бик", Patterns: []string{"бик", "банковский идентификационный код"}},
		{Name: "кпп", Patterns: []string{"кпп", "код причины"}},
		{Name: "огрн", Patterns: []string{"огрн", "основной государственный регистрационный номер"}},
	}
}

// Rules configures a Validator. Zero values select the defaults.
type Rules struct {
	Clauses             []Clause
	Requisites          []Requisite
	FoundationThreshold decimal.Decimal
}

// Validator checks contracts against a fixed rule set. It is safe for
// concurrent use.
type Validator struct {
	clauses    []Clause
	requisites []Requisite
	threshold  decimal.Decimal
	logger     *slog.Logger
}

// NewValidator constructs a validator.
func NewValidator(rules Rules, logger *slog.Logger) *Validator {
	v := &Validator{
		clauses:    rules.Clauses,
		requisites: rules.Requisites,
		threshold:  rules.FoundationThreshold,
		logger:     logger,
	}
	if len(v.clauses) == 0 {
		v.clauses = DefaultClauses()
	}
	if len(v.requisites) == 0 {
		v.requisites = DefaultRequisites()
	}
	if !v.threshold.IsPositive() {
		v.threshold = DefaultFoundationThreshold
	}
	return v
}

// Validate reports missing clauses, the contract price and related findings.
// Every problem is returned as data; Validate never fails.
func (v *Validator) Validate(contractText, lawType string) domain.ValidationReport {
	normalized := strings.Join(strings.Fields(contractText), " ")
	lower := strings.ToLower(normalized)

	report := domain.ValidationReport{
		Errors:                  []domain.Issue{},
		Warnings:                []domain.Issue{},
		MandatoryClausesChecked: make([]string, 0, len(v.clauses)),
	}

	for _, clause := range v.clauses {
		report.MandatoryClausesChecked = append(report.MandatoryClausesChecked, clause.Name)
		switch {
		case containsAny(lower, clause.Phrasings):
		case containsAny(lower, clause.Related):
			report.Warnings = append(report.Warnings, domain.Issue{
				Kind:     domain.KindClauseFormat,
				Clause:   clause.Name,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("Раздел %q присутствует, но имеет нестандартное название", clause.Name),
			})
		default:
			report.Errors = append(report.Errors, domain.Issue{
				Kind:     domain.KindMissingClause,
				Clause:   clause.Name,
				Severity: domain.SeverityCritical,
				Message:  "Отсутствует обязательный раздел: " + clause.Name,
			})
		}
	}

	report.Price = ExtractPrice(contractText)
	if !report.Price.Found {
		report.Errors = append(report.Errors, domain.Issue{
			Kind:     domain.KindMissingPrice,
			Severity: domain.SeverityCritical,
			Message:  "Не обнаружена цена контракта",
		})
	} else if issue, ok := v.checkFoundation(normalized, report.Price); ok {
		report.Errors = append(report.Errors, issue)
	}

	if issue, ok := v.checkRequisites(lower); ok {
		report.Warnings = append(report.Warnings, issue)
	}

	v.debug("contract validated",
		"law", lawType,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
		"price_found", report.Price.Found,
	)
	return report
}

// checkFoundation flags a single-source small purchase whose price exceeds
// the threshold.
func (v *Validator) checkFoundation(text string, price domain.PriceInfo) (domain.Issue, bool) {
	if !foundationCitation.MatchString(text) {
		return domain.Issue{}, false
	}
	value, err := parseAmount(price.RawText)
	if err != nil || !value.GreaterThan(v.threshold) {
		return domain.Issue{}, false
	}
	return domain.Issue{
		Kind:     domain.KindFoundationMismatch,
		Severity: domain.SeverityCritical,
		Message: fmt.Sprintf(
			"Закупка у единственного поставщика по п. 4 ч. 1 ст. 93 допускается на сумму не более %s руб., цена контракта %s руб.",
			v.threshold.String(), value.StringFixed(2)),
	}, true
}

func (v *Validator) checkRequisites(lower string) (domain.Issue, bool) {
	var missing []string
	for _, requisite := range v.requisites {
		if !containsAny(lower, requisite.Patterns) {
			missing = append(missing, requisite.Name)
		}
	}
	if len(missing) == 0 {
		return domain.Issue{}, false
	}
	return domain.Issue{
		Kind:     domain.KindMissingRequisites,
		Severity: domain.SeverityWarning,
		Message:  "Возможно отсутствуют реквизиты: " + strings.Join(missing, ", "),
	}, true
}

func containsAny(text string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

func (v *Validator) debug(msg string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Debug(msg, args...)
	}
}
