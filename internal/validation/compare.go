package validation

import (
	"fmt"

	"ContractAuditor/internal/domain"
)

const parameterPrice = "price"

// Compare reports parameters whose values differ between a contract and its
// notice. A parameter missing from either document is not reported.
func Compare(contractText, noticeText string) domain.ComparisonReport {
	report := domain.ComparisonReport{
		Mismatches:         []domain.Mismatch{},
		ParametersCompared: []string{parameterPrice},
	}

	contractPrice := ExtractPrice(contractText)
	noticePrice := ExtractPrice(noticeText)
	if contractPrice.Found && noticePrice.Found && contractPrice.RawText != noticePrice.RawText {
		report.Mismatches = append(report.Mismatches, domain.Mismatch{
			Parameter:     parameterPrice,
			ContractValue: contractPrice.RawText,
			NoticeValue:   noticePrice.RawText,
			Message: fmt.Sprintf("Цена контракта (%s) не соответствует цене в извещении (%s)",
				contractPrice.RawText, noticePrice.RawText),
		})
	}

	return report
}

// Compare satisfies the comparator port with the package-level Compare.
func (v *Validator) Compare(contractText, noticeText string) domain.ComparisonReport {
	return Compare(contractText, noticeText)
}
