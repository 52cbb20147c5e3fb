package bot

import (
	"fmt"
	"strconv"

	"github.com/oltinwash/backend/internal/models"
	"gopkg.in/telebot.v4"
)

const buttonsPerRow = 3

// navigationRow appends the back and cancel buttons every flow screen
// carries.
func navigationRow(menu *telebot.ReplyMarkup) telebot.Row {
	back := menu.Data("⬅️ Back", btnBack.Unique)
	cancel := menu.Data("❌ Cancel", btnCancel.Unique)

	return menu.Row(back, cancel)
}

// batchRows lays buttons out three per row, matching how the catalog
// keyboards look in the shop's phones.
func batchRows(menu *telebot.ReplyMarkup, buttons []telebot.Btn) []telebot.Row {
	var rows []telebot.Row
	for i := 0; i < len(buttons); i += buttonsPerRow {
		end := min(i+buttonsPerRow, len(buttons))
		rows = append(rows, menu.Row(buttons[i:end]...))
	}

	return rows
}

// buildServiceMenu creates the service selection keyboard.
func buildServiceMenu(services []models.Service) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	buttons := make([]telebot.Btn, 0, len(services))
	for _, svc := range services {
		buttons = append(buttons, menu.Data(svc.Name, btnService.Unique, strconv.Itoa(svc.ID)))
	}

	rows := batchRows(menu, buttons)
	cancel := menu.Data("❌ Cancel", btnCancel.Unique)
	rows = append(rows, menu.Row(cancel))
	menu.Inline(rows...)

	return menu
}

// buildClassMenu creates the class selection keyboard. Classes without a
// display name fall back to their price so the button is never blank.
func buildClassMenu(classes []models.ServiceClass) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	buttons := make([]telebot.Btn, 0, len(classes))
	for _, class := range classes {
		label := class.Name.String
		if label == "" {
			label = fmt.Sprintf("%.0f", class.Price.Float64)
		}
		buttons = append(buttons, menu.Data(label, btnClass.Unique, strconv.Itoa(class.ID)))
	}

	rows := batchRows(menu, buttons)
	rows = append(rows, navigationRow(menu))
	menu.Inline(rows...)

	return menu
}

// buildEmployeeMenu creates the washer selection keyboard.
func buildEmployeeMenu(employees []models.Employee) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	buttons := make([]telebot.Btn, 0, len(employees))
	for _, employee := range employees {
		buttons = append(buttons, menu.Data(employee.FullName, btnEmployee.Unique, strconv.Itoa(employee.ID)))
	}

	rows := batchRows(menu, buttons)
	rows = append(rows, navigationRow(menu))
	menu.Inline(rows...)

	return menu
}

// buildPriceMenu offers the class default price or a custom amount. A
// class without a price tag still gets an accept button so the order can
// be registered as negotiated.
func buildPriceMenu(defaultPrice float64, hasDefault bool) *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	var rows []telebot.Row
	if hasDefault {
		accept := menu.Data(fmt.Sprintf("✅ %.0f", defaultPrice), btnPriceDefault.Unique)
		rows = append(rows, menu.Row(accept))
	} else {
		negotiated := menu.Data("🤝 No fixed price (negotiated)", btnPriceDefault.Unique)
		rows = append(rows, menu.Row(negotiated))
	}
	custom := menu.Data("✏️ Enter another amount", btnPriceCustom.Unique)
	rows = append(rows, menu.Row(custom), navigationRow(menu))
	menu.Inline(rows...)

	return menu
}

// buildReportPeriodMenu creates the report export period keyboard.
func buildReportPeriodMenu() *telebot.ReplyMarkup {
	menu := &telebot.ReplyMarkup{}

	current := menu.Data("📅 Current month", btnReportPeriodCurrent.Unique)
	last := menu.Data("🗓 Last month", btnReportPeriodLast.Unique)
	week := menu.Data("📆 Last 7 days", btnReportPeriod7Days.Unique)
	menu.Inline(menu.Row(current), menu.Row(last), menu.Row(week))

	return menu
}
