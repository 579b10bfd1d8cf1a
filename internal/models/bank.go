package models

// Option is a label/value pair used for bank and account-type pickers.
type Option struct {
	Label string
	Value string
}

var Banks = []Option{
	{Label: "ธนาคารกรุงเทพ", Value: "bbl"},
	{Label: "ธนาคารกสิกรไทย", Value: "kbank"},
	{Label: "ธนาคารกรุงไทย", Value: "ktb"},
	{Label: "ธนาคารไทยพาณิชย์", Value: "scb"},
	{Label: "ธนาคารกรุงศรีอยุธยา", Value: "bay"},
	{Label: "ธนาคารทหารไทย", Value: "tmb"},
	{Label: "ธนาคารออมสิน", Value: "gsb"},
	{Label: "ธนาคารซีไอเอ็มบีไทย", Value: "cimbt"},
	{Label: "ธนาคารเกียรตินาคินภัทร", Value: "kkp"},
}

var BankAccountTypes = []Option{
	{Label: "บัญชีออมทรัพย์", Value: AccountTypeSaving.String()},
	{Label: "บัญชีเงินฝากประจำ", Value: AccountTypeFixedDeposit.String()},
	{Label: "บัญชีเงินฝากเงินตราต่างประเทศ", Value: AccountTypeFCD.String()},
}

var FinancialAccountTypes = []Option{
	{Label: "บัญชีกองทุนรวม", Value: AccountTypeMutualFund.String()},
	{Label: "พอร์ตการลงทุน", Value: AccountTypeStock.String()},
}

// BankLabel resolves a bank identifier to its display label. Unknown values
// are returned as-is so the UI still shows something useful.
func BankLabel(value string) string {
	for _, b := range Banks {
		if b.Value == value {
			return b.Label
		}
	}
	return value
}
