package export

import (
	"fmt"
	"io"
	"time"

	"pocketfolio/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the account/pocket snapshot as a workbook: one summary
// sheet of accounts and one sheet of all pockets. Balances are written as
// decimal strings so nothing is rounded through a float.
func WriteXLSX(w io.Writer, accounts []models.Account) error {
	f := excelize.NewFile()
	defer f.Close()

	const accountsSheet = "Accounts"
	index, err := f.NewSheet(accountsSheet)
	if err != nil {
		return errors.Wrap(err, "create accounts sheet")
	}
	f.SetActiveSheet(index)

	headers := []string{"Name", "Bank", "Type", "Balance", "Pockets", "Created"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(accountsSheet, cell, h)
	}

	for idx, a := range accounts {
		row := idx + 2
		f.SetCellValue(accountsSheet, fmt.Sprintf("A%d", row), a.Name)
		f.SetCellValue(accountsSheet, fmt.Sprintf("B%d", row), models.BankLabel(a.Bank))
		f.SetCellValue(accountsSheet, fmt.Sprintf("C%d", row), a.Type.String())
		f.SetCellValue(accountsSheet, fmt.Sprintf("D%d", row), a.Balance.String())
		f.SetCellValue(accountsSheet, fmt.Sprintf("E%d", row), len(a.Pockets))
		f.SetCellValue(accountsSheet, fmt.Sprintf("F%d", row), time.Unix(a.CreatedAt, 0).Format("2006-01-02"))
	}

	f.SetColWidth(accountsSheet, "A", "A", 20)
	f.SetColWidth(accountsSheet, "B", "B", 25)
	f.SetColWidth(accountsSheet, "C", "C", 15)
	f.SetColWidth(accountsSheet, "D", "D", 14)
	f.SetColWidth(accountsSheet, "F", "F", 12)

	const pocketsSheet = "Pockets"
	if _, err := f.NewSheet(pocketsSheet); err != nil {
		return errors.Wrap(err, "create pockets sheet")
	}

	pocketHeaders := []string{"Account", "Pocket", "Type", "Balance"}
	for i, h := range pocketHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(pocketsSheet, cell, h)
	}

	row := 2
	for _, a := range accounts {
		for _, p := range a.Pockets {
			f.SetCellValue(pocketsSheet, fmt.Sprintf("A%d", row), a.Name)
			f.SetCellValue(pocketsSheet, fmt.Sprintf("B%d", row), p.Name)
			f.SetCellValue(pocketsSheet, fmt.Sprintf("C%d", row), p.Type.String())
			f.SetCellValue(pocketsSheet, fmt.Sprintf("D%d", row), p.Balance.String())
			row++
		}
	}

	f.SetColWidth(pocketsSheet, "A", "A", 20)
	f.SetColWidth(pocketsSheet, "B", "B", 20)
	f.SetColWidth(pocketsSheet, "C", "C", 12)
	f.SetColWidth(pocketsSheet, "D", "D", 14)

	f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
