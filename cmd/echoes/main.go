package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echoesapp/echoes/internal/profile"
	"github.com/echoesapp/echoes/service/memory"
	"github.com/echoesapp/echoes/stats"
	"github.com/echoesapp/echoes/store"
	"github.com/echoesapp/echoes/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "echoes",
		Short: "Echoes is a local journaling store: memories tied to places",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statsCmd.RunE(cmd, args)
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List memories for the current owner, newest event first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			for _, m := range svc.Fetch(ctx) {
				printMemory(m)
			}
			if msg := svc.LastError(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			return nil
		},
	}

	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Save a new memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			title, _ := cmd.Flags().GetString("title")
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			description, _ := cmd.Flags().GetString("description")
			place, _ := cmd.Flags().GetString("place")
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			eventDate, _ := cmd.Flags().GetString("event")

			eventTs := time.Now().Unix()
			if eventDate != "" {
				parsed, err := time.Parse("2006-01-02", eventDate)
				if err != nil {
					return fmt.Errorf("invalid --event date %q, want YYYY-MM-DD", eventDate)
				}
				eventTs = parsed.Unix()
			}

			req := &memory.SaveRequest{
				Title:        title,
				Description:  description,
				EventTs:      eventTs,
				Latitude:     lat,
				Longitude:    lon,
				LocationName: place,
			}
			if photoPath, _ := cmd.Flags().GetString("photo"); photoPath != "" {
				blob, err := os.ReadFile(photoPath)
				if err != nil {
					return fmt.Errorf("failed to read photo: %w", err)
				}
				req.Photo = blob
			}
			if voicePath, _ := cmd.Flags().GetString("voice-note"); voicePath != "" {
				blob, err := os.ReadFile(voicePath)
				if err != nil {
					return fmt.Errorf("failed to read voice note: %w", err)
				}
				req.VoiceNote = blob
			}

			created, err := svc.Save(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("saved %s\n", created.ID)
			return nil
		},
	}

	searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Search memories by title, description, or place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			svc.Fetch(ctx)
			for _, m := range svc.Search(args[0]) {
				printMemory(m)
			}
			return nil
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			svc.Fetch(ctx)
			m := svc.Find(args[0])
			if m == nil {
				return fmt.Errorf("memory %s not found", args[0])
			}
			return svc.Delete(ctx, m)
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics for the current owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			svc.Fetch(ctx)
			collector := stats.NewCollector(svc)
			collector.Collect(ctx)
			fmt.Println(collector.GetStats().GetSummary())
			return nil
		},
	}
)

func init() {
	viper.SetEnvPrefix("echoes")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the app, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("owner", "", "owner id supplied by the session store")

	for _, key := range []string{"mode", "data", "driver", "dsn", "owner"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	addCmd.Flags().String("title", "", "memory title")
	addCmd.Flags().String("description", "", "memory description")
	addCmd.Flags().String("place", "", "location name")
	addCmd.Flags().Float64("lat", 0, "latitude")
	addCmd.Flags().Float64("lon", 0, "longitude")
	addCmd.Flags().String("event", "", "event date (YYYY-MM-DD, defaults to today)")
	addCmd.Flags().String("photo", "", "path to a photo file")
	addCmd.Flags().String("voice-note", "", "path to a voice note file")

	rootCmd.AddCommand(listCmd, addCmd, searchCmd, deleteCmd, statsCmd)
}

// newCore wires the store and memory service for CLI commands. The owner id
// stands in for the session store the mobile app reads it from.
func newCore(ctx context.Context) (*memory.Service, func(), error) {
	instanceProfile := &profile.Profile{
		Mode:   viper.GetString("mode"),
		Data:   viper.GetString("data"),
		Driver: viper.GetString("driver"),
		DSN:    viper.GetString("dsn"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid profile: %w", err)
	}

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create db driver: %w", err)
	}

	storeInstance := store.New(driver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}

	svc, err := memory.NewService(storeInstance, slog.Default())
	if err != nil {
		_ = storeInstance.Close()
		return nil, nil, err
	}
	svc.SetCurrentOwner(ctx, viper.GetString("owner"))

	closeFn := func() {
		svc.Close()
		if err := storeInstance.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}
	return svc, closeFn, nil
}

func printMemory(m *store.Memory) {
	media := ""
	if m.HasPhoto {
		media += " [photo]"
	}
	if m.HasVoiceNote {
		media += " [voice]"
	}
	fmt.Printf("%s  %s  %s (%s)%s\n",
		m.ID,
		time.Unix(m.EventTs, 0).Format("2006-01-02"),
		m.Title,
		m.LocationName,
		media,
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
