package app

import (
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"cauciones-alerts/internal/rules"
)

// RulesOptions control the rule listing.
type RulesOptions struct {
	AlertsPath string
	Out        io.Writer
}

// Rules validates the rule file and prints it. No credentials are needed.
func (a *App) Rules(opts RulesOptions) error {
	path := a.alertsPath(opts.AlertsPath)
	list, err := rules.LoadFile(path)
	if err != nil {
		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Plazo", "Lado", "Condición", "Objetivo %", "Activa", "Descripción"})
	for _, rule := range list {
		enabled := "no"
		if rule.Enabled {
			enabled = "sí"
		}
		table.Append([]string{
			strconv.Itoa(rule.Tenor) + "d",
			rule.Side.Label(),
			string(rule.Comparison),
			rule.TargetRate.StringFixed(2),
			enabled,
			rule.Description,
		})
	}
	table.Render()

	a.Logger.Info().Str("path", path).Int("rules", len(list)).Msg("rule file is valid")
	return nil
}
