package parser

import (
	"encoding/xml"
	"strings"
)

// Decode targets for the IATI document shape. Element names are matched by
// local name, which tolerates the namespaced and un-namespaced variants seen
// across published files.

type xmlActivities struct {
	XMLName    xml.Name      `xml:"iati-activities"`
	Version    string        `xml:"version,attr"`
	Activities []xmlActivity `xml:"iati-activity"`
}

type xmlActivity struct {
	Lang            string `xml:"lang,attr"`
	DefaultCurrency string `xml:"default-currency,attr"`
	Humanitarian    string `xml:"humanitarian,attr"`

	Identifier           string                   `xml:"iati-identifier"`
	ReportingOrg         xmlOrgRef                `xml:"reporting-org"`
	Title                xmlNarrativeContainer    `xml:"title"`
	Descriptions         []xmlNarrativeContainer  `xml:"description"`
	ParticipatingOrgs    []xmlOrgRef              `xml:"participating-org"`
	ActivityStatus       xmlCoded                 `xml:"activity-status"`
	ActivityDates        []xmlActivityDate        `xml:"activity-date"`
	Sectors              []xmlSector              `xml:"sector"`
	DefaultAidType       xmlCoded                 `xml:"default-aid-type"`
	DefaultFlowType      xmlCoded                 `xml:"default-flow-type"`
	DefaultFinanceType   xmlCoded                 `xml:"default-finance-type"`
	DefaultTiedStatus    xmlCoded                 `xml:"default-tied-status"`
	Budgets              []xmlBudget              `xml:"budget"`
	PlannedDisbursements []xmlPlannedDisbursement `xml:"planned-disbursement"`
	Transactions         []xmlTransaction         `xml:"transaction"`
}

type xmlTransaction struct {
	Ref          string `xml:"ref,attr"`
	Humanitarian string `xml:"humanitarian,attr"`

	Type                xmlCoded                `xml:"transaction-type"`
	Date                xmlISODate              `xml:"transaction-date"`
	Value               xmlValue                `xml:"value"`
	Descriptions        []xmlNarrativeContainer `xml:"description"`
	ProviderOrg         xmlOrgRef               `xml:"provider-org"`
	ReceiverOrg         xmlOrgRef               `xml:"receiver-org"`
	AidType             xmlCoded                `xml:"aid-type"`
	FlowType            xmlCoded                `xml:"flow-type"`
	FinanceType         xmlCoded                `xml:"finance-type"`
	TiedStatus          xmlCoded                `xml:"tied-status"`
	DisbursementChannel xmlCoded                `xml:"disbursement-channel"`
	Sector              xmlSector               `xml:"sector"`
}

type xmlBudget struct {
	Type        string     `xml:"type,attr"`
	Status      string     `xml:"status,attr"`
	PeriodStart xmlISODate `xml:"period-start"`
	PeriodEnd   xmlISODate `xml:"period-end"`
	Value       xmlValue   `xml:"value"`
}

type xmlPlannedDisbursement struct {
	Type        string     `xml:"type,attr"`
	PeriodStart xmlISODate `xml:"period-start"`
	PeriodEnd   xmlISODate `xml:"period-end"`
	Value       xmlValue   `xml:"value"`
}

type xmlOrgRef struct {
	Ref                string         `xml:"ref,attr"`
	Type               string         `xml:"type,attr"`
	Role               string         `xml:"role,attr"`
	ActivityID         string         `xml:"activity-id,attr"`
	ProviderActivityID string         `xml:"provider-activity-id,attr"`
	ReceiverActivityID string         `xml:"receiver-activity-id,attr"`
	Narratives         []xmlNarrative `xml:"narrative"`
}

type xmlNarrativeContainer struct {
	Narratives []xmlNarrative `xml:"narrative"`
}

type xmlNarrative struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type xmlCoded struct {
	Code string `xml:"code,attr"`
}

type xmlISODate struct {
	ISODate string `xml:"iso-date,attr"`
}

type xmlActivityDate struct {
	ISODate string `xml:"iso-date,attr"`
	Type    string `xml:"type,attr"`
}

type xmlSector struct {
	Code       string `xml:"code,attr"`
	Vocabulary string `xml:"vocabulary,attr"`
	Percentage string `xml:"percentage,attr"`
}

type xmlValue struct {
	Currency  string `xml:"currency,attr"`
	ValueDate string `xml:"value-date,attr"`
	Amount    string `xml:",chardata"`
}

func trimText(s string) string {
	return strings.TrimSpace(s)
}
