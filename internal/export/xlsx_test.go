package export

import (
	"bytes"
	"testing"
	"time"

	"pocketfolio/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	accountID := uuid.New()
	accounts := []models.Account{
		{
			ID:        accountID,
			Type:      models.AccountTypeSaving,
			Name:      "Salary",
			Bank:      "kbank",
			Balance:   decimal.RequireFromString("1234.50"),
			CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Unix(),
			Pockets: []models.Pocket{
				{ID: uuid.New(), AccountID: accountID, Name: "Travel", Type: models.PocketTypeCustom, Balance: decimal.RequireFromString("200.00")},
				{ID: uuid.New(), AccountID: accountID, Name: "Cashbox", Type: models.PocketTypeCashbox, Balance: decimal.RequireFromString("1034.50")},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, accounts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Accounts", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Salary", name)

	bank, err := f.GetCellValue("Accounts", "B2")
	require.NoError(t, err)
	assert.Equal(t, "ธนาคารกสิกรไทย", bank)

	balance, err := f.GetCellValue("Accounts", "D2")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", balance)

	pocket, err := f.GetCellValue("Pockets", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Cashbox", pocket)

	assert.NotContains(t, f.GetSheetList(), "Sheet1")
}

func TestWriteXLSXEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Accounts", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Name", header)
}
