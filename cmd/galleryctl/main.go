// Command galleryctl runs maintenance jobs against the gallery document store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rurikon/gallery-api/internal/config"
	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/pkg/database"
	"github.com/rurikon/gallery-api/internal/pkg/docstore"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	"github.com/rurikon/gallery-api/internal/pkg/password"
)

const actor = "galleryctl"

// openFunc builds a gallery service and a release func for it.
type openFunc func(ctx context.Context) (*gallery.Service, func(), error)

func main() {
	cfg := config.Load()
	if _, err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(openFromConfig(cfg)).Execute(); err != nil {
		os.Exit(1)
	}
}

func openFromConfig(cfg *config.Config) openFunc {
	return func(ctx context.Context) (*gallery.Service, func(), error) {
		if cfg.UsesMemoryStore() {
			return nil, nil, errors.New("DATABASE_URL is required")
		}

		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}

		store := docstore.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			database.ClosePostgres(db)
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}

		// Writes from here are not announced to running API instances; their
		// category cache expires on its own TTL.
		svc := gallery.NewService(gallery.NewRepository(store), nil, nil)
		return svc, func() { database.ClosePostgres(db) }, nil
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Gallery maintenance",
		SilenceUsage:  true,
	}

	root.AddCommand(
		newCheckCmd(open),
		newRepairCmd(open),
		newPurgeTrashCmd(open),
		newHashPasswordCmd(),
	)
	return root
}

func newCheckCmd(open openFunc) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report invariant violations without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := svc.Check(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if strict && !report.Healthy {
				return errors.New("gallery is not healthy")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any violation is found")
	return cmd
}

func newRepairCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Fix repairable violations in one atomic batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.Repair(cmd.Context(), actor)
			if err != nil {
				return err
			}
			log.Info().Int("writes", result.Writes).Msg("repair finished")
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newPurgeTrashCmd(open openFunc) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-trash",
		Short: "Permanently delete trash entries older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.PurgeTrashOlderThan(cmd.Context(), olderThan, actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "minimum age of purged entries")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Hashes the argument, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				plain, _, _ = strings.Cut(string(raw), "\n")
				plain = strings.TrimRight(plain, "\r")
			}
			if plain == "" {
				return errors.New("password is empty")
			}

			hash, err := password.Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
