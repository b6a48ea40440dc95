package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var errNoChangeBus = errors.New("no change bus configured (set redis.channel or nats.url)")

// NewNotifyCmd publishes a change signal so every running instance refreshes
// its live leaderboards. Writers that bypass the database trigger call this.
func NewNotifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Signal running instances that submissions changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotify(cmd.Context(), *configPath)
		},
	}
}

func runNotify(ctx context.Context, configPath string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, nil)
	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return publishChange(ctx, st)
}

func publishChange(ctx context.Context, st *stack) error {
	if len(st.buses) == 0 {
		return errNoChangeBus
	}
	for _, bus := range st.buses {
		if err := bus.Publish(ctx); err != nil {
			return err
		}
	}
	return nil
}
