package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBSeedDemoCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Taskboard database",
		Long:  "Migrates all tables and seeds the default issue statuses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Taskboard config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database\n", cfg.Database.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedStatuses(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d issue statuses:", len(db.DefaultStatuses))
	for _, s := range db.DefaultStatuses {
		fmt.Fprintf(out, " %q", s.Name)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "\nTaskboard database initialized successfully.")
	return nil
}

func newDBSeedDemoCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Create a demo project with users and issues",
		Long: `Creates the "ecookbook" demo project with the dashboard module enabled,
the users admin, jsmith, dlopper and rhill, three versions and a handful of
issues. Running it again leaves existing rows in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeedDemo(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Taskboard config file")
	return cmd
}

func runDBSeedDemo(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	summary, err := db.SeedDemo(gormDB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Project %q (id %d)\n", summary.Project.Identifier, summary.Project.ID)
	fmt.Fprintf(out, "Users:")
	for _, u := range summary.Users {
		fmt.Fprintf(out, " %s", u.Login)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Versions: %d, issues: %d\n", summary.Versions, summary.Issues)
	return nil
}
