package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"zsembells/pkg/audio"
	"zsembells/pkg/bell"
	"zsembells/pkg/config"
	"zsembells/pkg/db"
	"zsembells/pkg/gpio"
	"zsembells/pkg/i18n"
	"zsembells/pkg/logging"
	"zsembells/pkg/model"
	"zsembells/pkg/request"
	"zsembells/pkg/schedule"
	"zsembells/pkg/store"
	"zsembells/pkg/tracker"
)

func newInitConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Generate the default config file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateDefault(*configPath); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", *configPath)
			return nil
		},
	}
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	d, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewSQLiteStore(d), nil
}

func newScheduleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Sync the timetable once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			keeper := schedule.NewKeeper(&cfg.Schedule, request.New(&cfg.Request, tracker.New()), st)
			sch, err := keeper.Sync(cmd.Context())
			if err != nil {
				return err
			}

			p := i18n.Printer(i18n.Default())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, logging.Table(
				[]string{p.Sprintf(i18n.MsgLesson), p.Sprintf(i18n.MsgStart), p.Sprintf(i18n.MsgEnd)},
				schedule.Rows(sch),
			))
			fmt.Fprintf(out, "branch %d of %v, fetched %s\n",
				sch.ScheduleBranch, sch.ValidBranches, sch.FetchedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newRingCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ring <work|break>",
		Short: "Ring one bell now and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := model.ParseBellKind(args[0])
			if !ok {
				return fmt.Errorf("unknown bell kind %q, want 'work' or 'break'", args[0])
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var relays bell.Relays
			gp := gpio.NewRelays(&cfg.GPIO, afero.NewOsFs())
			if gp.Setup() {
				relays = gp
				defer gp.Cleanup()
			}

			player, err := audio.New(&cfg.Audio)
			if err != nil {
				return err
			}

			ringer := bell.NewRinger(config.NewProvider(cfg, st), relays, player, st)
			ev, err := ringer.Ring(cmd.Context(), kind, model.SourceManual)
			fmt.Fprintln(cmd.OutOrStdout(), logging.FormatRing(ev))
			return err
		},
	}
}
