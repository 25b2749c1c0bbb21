package parser

import (
	"encoding/xml"
	"io"

	"github.com/goliatone/go-aidimport/pkg/types"
	goerrors "github.com/goliatone/go-errors"
)

// SchemaErrorCode tags the go-errors code for unparseable documents.
const SchemaErrorCode = "schema-error"

// Parse decodes an IATI-style document into parsed records. All activities
// are buffered before any transaction is produced, because a transaction may
// reference an activity declared later in the same document.
//
// Parse performs no validation: missing optional fields stay absent, and raw
// values that fail type-level cleaning are collected on the record for the
// validator to report. Only an unparseable document fails the whole batch.
func Parse(r io.Reader) (*types.Document, error) {
	var raw xmlActivities
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "aidimport: document cannot be parsed").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"error_code": SchemaErrorCode})
	}

	doc := &types.Document{}
	for idx, rawAct := range raw.Activities {
		doc.Activities = append(doc.Activities, parseActivity(idx, rawAct))
	}
	// Second pass: activities are all known before the first transaction.
	for _, rawAct := range raw.Activities {
		identifier := cleanIdentifier(rawAct.Identifier)
		defaultCurrency := cleanCurrency(rawAct.DefaultCurrency)
		activityHumanitarian, activityHumanitarianSet, _ := cleanBoolean(rawAct.Humanitarian)

		for _, rawTx := range rawAct.Transactions {
			tx := parseTransaction(len(doc.Transactions), identifier, defaultCurrency, rawTx)
			if !txHumanitarianProvided(rawTx) && activityHumanitarianSet {
				tx.Humanitarian = activityHumanitarian
			}
			doc.Transactions = append(doc.Transactions, tx)
		}
		for _, rawBudget := range rawAct.Budgets {
			doc.Budgets = append(doc.Budgets, parseBudget(len(doc.Budgets), identifier, defaultCurrency, rawBudget))
		}
		for _, rawPD := range rawAct.PlannedDisbursements {
			doc.Budgets = append(doc.Budgets, parsePlannedDisbursement(len(doc.Budgets), identifier, defaultCurrency, rawPD))
		}
	}
	return doc, nil
}

func parseActivity(index int, raw xmlActivity) *types.ParsedActivity {
	act := &types.ParsedActivity{
		Index:              index,
		IATIIdentifier:     cleanIdentifier(raw.Identifier),
		Title:              collectNarratives(raw.Title.Narratives, raw.Lang),
		Description:        collectNarratives(firstDescription(raw.Descriptions), raw.Lang),
		StatusCode:         cleanEnum(raw.ActivityStatus.Code),
		DefaultAidType:     cleanEnum(raw.DefaultAidType.Code),
		DefaultFlowType:    cleanEnum(raw.DefaultFlowType.Code),
		DefaultFinanceType: cleanEnum(raw.DefaultFinanceType.Code),
		DefaultTiedStatus:  cleanEnum(raw.DefaultTiedStatus.Code),
		ReportingOrg: types.OrgRef{
			Ref:      cleanIdentifier(raw.ReportingOrg.Ref),
			Name:     collectNarratives(raw.ReportingOrg.Narratives, raw.Lang).Text(),
			TypeCode: cleanEnum(raw.ReportingOrg.Type),
		},
	}

	for _, date := range raw.ActivityDates {
		parsed, err := cleanDate(date.ISODate)
		if err != nil {
			act.Malformed = append(act.Malformed, types.MalformedField{
				Name: "activity-date", Raw: date.ISODate, Reason: err.Error(),
			})
			continue
		}
		switch date.Type {
		case "1":
			act.PlannedStart = parsed
		case "2":
			act.ActualStart = parsed
		case "3":
			act.PlannedEnd = parsed
		case "4":
			act.ActualEnd = parsed
		}
	}

	for _, org := range raw.ParticipatingOrgs {
		ref := types.OrgRef{
			Ref:        cleanIdentifier(org.Ref),
			Name:       collectNarratives(org.Narratives, raw.Lang).Text(),
			TypeCode:   cleanEnum(org.Type),
			ActivityID: cleanIdentifier(org.ActivityID),
		}
		if !ref.Empty() {
			act.ParticipatingOrgs = append(act.ParticipatingOrgs, ref)
		}
	}

	for _, sector := range raw.Sectors {
		alloc := types.SectorAllocation{
			Code:       cleanEnum(sector.Code),
			Vocabulary: cleanEnum(sector.Vocabulary),
		}
		if sector.Percentage != "" {
			pct, ok, err := cleanDecimal(sector.Percentage)
			if err != nil {
				act.Malformed = append(act.Malformed, types.MalformedField{
					Name: "sector/@percentage", Raw: sector.Percentage, Reason: err.Error(),
				})
			} else if ok {
				alloc.Percent = pct
			}
		}
		if alloc.Code != "" {
			act.Sectors = append(act.Sectors, alloc)
		}
	}
	return act
}

func parseTransaction(index int, activityRef, defaultCurrency string, raw xmlTransaction) *types.ParsedTransaction {
	tx := &types.ParsedTransaction{
		Index:       index,
		ActivityRef: activityRef,
		TypeCode:    cleanEnum(raw.Type.Code),
		Reference:   cleanIdentifier(raw.Ref),
		Description: collectNarratives(firstDescription(raw.Descriptions), ""),
		Provider: types.OrgRef{
			Ref:        cleanIdentifier(raw.ProviderOrg.Ref),
			Name:       collectNarratives(raw.ProviderOrg.Narratives, "").Text(),
			TypeCode:   cleanEnum(raw.ProviderOrg.Type),
			ActivityID: cleanIdentifier(raw.ProviderOrg.ProviderActivityID),
		},
		Receiver: types.OrgRef{
			Ref:        cleanIdentifier(raw.ReceiverOrg.Ref),
			Name:       collectNarratives(raw.ReceiverOrg.Narratives, "").Text(),
			TypeCode:   cleanEnum(raw.ReceiverOrg.Type),
			ActivityID: cleanIdentifier(raw.ReceiverOrg.ReceiverActivityID),
		},
		Codes: types.TransactionCodes{
			AidType:             cleanEnum(raw.AidType.Code),
			FlowType:            cleanEnum(raw.FlowType.Code),
			FinanceType:         cleanEnum(raw.FinanceType.Code),
			TiedStatus:          cleanEnum(raw.TiedStatus.Code),
			DisbursementChannel: cleanEnum(raw.DisbursementChannel.Code),
			Sector:              cleanEnum(raw.Sector.Code),
			SectorVocabulary:    cleanEnum(raw.Sector.Vocabulary),
		},
	}

	if date, err := cleanDate(raw.Date.ISODate); err != nil {
		tx.Malformed = append(tx.Malformed, types.MalformedField{
			Name: "transaction-date", Raw: raw.Date.ISODate, Reason: err.Error(),
		})
	} else {
		tx.Date = date
	}

	value, set, err := cleanDecimal(raw.Value.Amount)
	if err != nil {
		tx.Malformed = append(tx.Malformed, types.MalformedField{
			Name: "value", Raw: raw.Value.Amount, Reason: err.Error(),
		})
	} else {
		tx.Value = value
		tx.ValueSet = set
	}

	tx.Currency = cleanCurrency(raw.Value.Currency)
	if tx.Currency == "" {
		tx.Currency = defaultCurrency
	}

	// value-date stays nil unless it genuinely differs from the transaction
	// date, which is the only case where an FX settlement date matters.
	if valueDate, err := cleanDate(raw.Value.ValueDate); err != nil {
		tx.Malformed = append(tx.Malformed, types.MalformedField{
			Name: "value/@value-date", Raw: raw.Value.ValueDate, Reason: err.Error(),
		})
	} else if valueDate != nil {
		if tx.Date == nil || !valueDate.Equal(*tx.Date) {
			tx.ValueDate = valueDate
		}
	}

	humanitarian, set, err := cleanBoolean(raw.Humanitarian)
	if err != nil {
		tx.Malformed = append(tx.Malformed, types.MalformedField{
			Name: "@humanitarian", Raw: raw.Humanitarian, Reason: err.Error(),
		})
	} else if set {
		tx.Humanitarian = humanitarian
	}
	return tx
}

func parseBudget(index int, activityRef, defaultCurrency string, raw xmlBudget) *types.ParsedBudget {
	budget := &types.ParsedBudget{
		Index:       index,
		ActivityRef: activityRef,
		TypeCode:    cleanEnum(raw.Type),
		StatusCode:  cleanEnum(raw.Status),
	}
	fillPeriodAndValue(budget, defaultCurrency, raw.PeriodStart.ISODate, raw.PeriodEnd.ISODate, raw.Value)
	return budget
}

func parsePlannedDisbursement(index int, activityRef, defaultCurrency string, raw xmlPlannedDisbursement) *types.ParsedBudget {
	budget := &types.ParsedBudget{
		Index:       index,
		ActivityRef: activityRef,
		TypeCode:    cleanEnum(raw.Type),
		StatusCode:  "planned_disbursement",
	}
	fillPeriodAndValue(budget, defaultCurrency, raw.PeriodStart.ISODate, raw.PeriodEnd.ISODate, raw.Value)
	return budget
}

func fillPeriodAndValue(budget *types.ParsedBudget, defaultCurrency, startRaw, endRaw string, value xmlValue) {
	if start, err := cleanDate(startRaw); err != nil {
		budget.Malformed = append(budget.Malformed, types.MalformedField{
			Name: "period-start", Raw: startRaw, Reason: err.Error(),
		})
	} else {
		budget.PeriodStart = start
	}
	if end, err := cleanDate(endRaw); err != nil {
		budget.Malformed = append(budget.Malformed, types.MalformedField{
			Name: "period-end", Raw: endRaw, Reason: err.Error(),
		})
	} else {
		budget.PeriodEnd = end
	}
	if amount, ok, err := cleanDecimal(value.Amount); err != nil {
		budget.Malformed = append(budget.Malformed, types.MalformedField{
			Name: "value", Raw: value.Amount, Reason: err.Error(),
		})
	} else if ok {
		budget.Value = amount
	}
	budget.Currency = cleanCurrency(value.Currency)
	if budget.Currency == "" {
		budget.Currency = defaultCurrency
	}
}

// collectNarratives folds narrative variants into a language-keyed map. Text
// without xml:lang lands under the inherited language, or the default key
// when no language was given anywhere.
func collectNarratives(narratives []xmlNarrative, inheritedLang string) types.Narrative {
	out := types.Narrative{}
	for _, n := range narratives {
		text := trimText(n.Text)
		if text == "" {
			continue
		}
		lang := cleanEnum(n.Lang)
		if lang == "" {
			lang = cleanEnum(inheritedLang)
		}
		if lang == "" {
			lang = types.DefaultLang
		}
		if _, exists := out[lang]; !exists {
			out[lang] = text
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstDescription(descriptions []xmlNarrativeContainer) []xmlNarrative {
	if len(descriptions) == 0 {
		return nil
	}
	return descriptions[0].Narratives
}

func txHumanitarianProvided(raw xmlTransaction) bool {
	_, set, err := cleanBoolean(raw.Humanitarian)
	return set || err != nil
}
