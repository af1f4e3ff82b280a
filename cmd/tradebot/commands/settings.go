package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the bot settings",
	Long: `Reads or updates the bot settings record.

Example:
  go run ./cmd/tradebot settings show
  go run ./cmd/tradebot settings set --auto-trading=true --max-position 15
  go run ./cmd/tradebot settings set --schedule "0 0 10 * * 1-5"`,
}

var (
	settingsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the bot settings",
		RunE:  showSettings,
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Update the given fields of the bot settings",
		RunE:  setSettings,
	}

	setAutoTrading bool
	setMaxPosition float64
	setMinAmount   float64
	setSchedule    string
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsSetCmd.Flags().BoolVar(&setAutoTrading, "auto-trading", false, "enable order placement")
	settingsSetCmd.Flags().Float64Var(&setMaxPosition, "max-position", 0, "max share of portfolio value per ticker, percent")
	settingsSetCmd.Flags().Float64Var(&setMinAmount, "min-amount", 0, "minimum order amount")
	settingsSetCmd.Flags().StringVar(&setSchedule, "schedule", "", "autotrade cron schedule, seconds first")
}

func showSettings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.Settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	return PrintJSON(s)
}

func setSettings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.Settings.GetSettings(ctx)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("auto-trading") {
		s.AutoTradingEnabled = setAutoTrading
	}
	if flags.Changed("max-position") {
		s.MaxPositionPercent = setMaxPosition
	}
	if flags.Changed("min-amount") {
		s.MinTradeAmount = setMinAmount
	}
	if flags.Changed("schedule") {
		s.Schedule = setSchedule
	}

	if err := a.Settings.SaveSettings(ctx, *s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	fmt.Println("✅ Settings saved")
	saved, err := a.Settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	return PrintJSON(saved)
}
