package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/absmach/rounds"
	"github.com/absmach/rounds/controller"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	errNotPositive = errors.New("must be a positive integer")
	errNotFraction = errors.New("must be a number within [0, 1]")

	acceptDefaults bool
)

// answers holds the form fields as typed.
type answers struct {
	Name      string
	BatchSize string
	Epochs    string
	Rounds    string
	PInitial  string
	MaxN      string
	Strategy  string
	ModelPath string
	Nesterov  bool
}

func answersFrom(cfg rounds.Config) answers {
	e := cfg.Experiment

	return answers{
		Name:      e.Name,
		BatchSize: strconv.Itoa(e.BatchSize),
		Epochs:    strconv.Itoa(e.Epochs),
		Rounds:    strconv.Itoa(e.Rounds),
		PInitial:  strconv.FormatFloat(e.PInitial, 'g', -1, 64),
		MaxN:      strconv.Itoa(e.MaxN),
		Strategy:  e.Strategy,
		ModelPath: e.ModelPath,
		Nesterov:  cfg.Optimizer.Nesterov,
	}
}

func positive(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return errNotPositive
	}

	return nil
}

func probability(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return errNotFraction
	}

	return nil
}

func integer(s string) error {
	_, err := strconv.Atoi(s)

	return err
}

// apply copies validated answers into cfg.
func (a answers) apply(cfg *rounds.Config) error {
	for _, check := range []struct {
		field string
		value string
		fn    func(string) error
	}{
		{"batch size", a.BatchSize, positive},
		{"epochs", a.Epochs, positive},
		{"rounds", a.Rounds, positive},
		{"initial fraction", a.PInitial, probability},
		{"max samples", a.MaxN, integer},
	} {
		if err := check.fn(check.value); err != nil {
			return fmt.Errorf("%s: %w", check.field, err)
		}
	}

	e := &cfg.Experiment
	e.Name = a.Name
	e.BatchSize, _ = strconv.Atoi(a.BatchSize)
	e.Epochs, _ = strconv.Atoi(a.Epochs)
	e.Rounds, _ = strconv.Atoi(a.Rounds)
	e.PInitial, _ = strconv.ParseFloat(a.PInitial, 64)
	e.MaxN, _ = strconv.Atoi(a.MaxN)
	e.Strategy = a.Strategy
	e.ModelPath = a.ModelPath
	cfg.Optimizer.Nesterov = a.Nesterov

	return cfg.Validate()
}

func (a *answers) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Run name").Description("Leave empty to generate one").Value(&a.Name),
			huh.NewInput().Title("Batch size").Value(&a.BatchSize).Validate(positive),
			huh.NewInput().Title("Epochs per round").Value(&a.Epochs).Validate(positive),
			huh.NewInput().Title("Rounds").Value(&a.Rounds).Validate(positive),
		),
		huh.NewGroup(
			huh.NewInput().Title("Initial fraction of the pool").Value(&a.PInitial).Validate(probability),
			huh.NewInput().Title("Pool size of the last round").Description("-1 uses the whole pool").Value(&a.MaxN).Validate(integer),
			huh.NewSelect[string]().
				Title("Model between rounds").
				Options(
					huh.NewOption("Carry forward", controller.CarryForward.String()),
					huh.NewOption("Reset each round", controller.ResetEachRound.String()),
				).
				Value(&a.Strategy),
		),
		huh.NewGroup(
			huh.NewInput().Title("Model path").Value(&a.ModelPath),
			huh.NewConfirm().Title("Nesterov momentum").Value(&a.Nesterov),
		),
	)
}

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write experiment file",
		Long:  `Interactively create an experiment file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := rounds.DefaultConfig()
			a := answersFrom(cfg)
			if !acceptDefaults {
				if err := a.form().Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}
			if err := a.apply(&cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if err := cfg.Save(configPath); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "wrote "+configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defConfigPath, "Experiment file to write")
	cmd.Flags().BoolVarP(&acceptDefaults, "yes", "y", false, "Write the defaults without prompting")

	return cmd
}
