package main

import (
	"fmt"
	"os"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	warmCmd := &cobra.Command{
		Use:   "warm-cache",
		Short: "Regenerate the workout cache of every scheduled user",
		RunE:  runWarmCache,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Migrate active mesocycles whose split type no longer fits the weekly frequency",
		RunE:  runSweep,
	}
	sweepCmd.Flags().String("user", "", "Restrict the sweep to one user ID")
	sweepCmd.Flags().Bool("dry-run", false, "Only report incompatible mesocycles")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sweep and warm-cache daily on the configured cron spec",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().String("spec", "", "Cron spec with a seconds field (default: worker.schedule)")

	publishCmd := &cobra.Command{
		Use:   "publish-catalog <file>",
		Short: "Validate a split catalog and upload it to object storage",
		Args:  cobra.ExactArgs(1),
		RunE:  runPublishCatalog,
	}
	publishCmd.Flags().String("key", "", "Object key (default: catalog.s3_key)")

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().String("name", "Administrator", "Display name")
	adminCmd.Flags().String("email", "", "Email address")
	adminCmd.Flags().String("password", "", "Password (default: $ADMIN_PASSWORD)")
	_ = adminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(warmCmd, sweepCmd, scheduleCmd, publishCmd, adminCmd)
}

func runWarmCache(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.runner.WarmCache(cmd.Context())
	if err != nil {
		return err
	}
	printJSON(res)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	rawUser, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var userID *primitive.ObjectID
	if rawUser != "" {
		id, err := primitive.ObjectIDFromHex(rawUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = &id
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.runner.Sweep(cmd.Context(), userID, dryRun)
	if report != nil {
		printJSON(report)
	}
	return err
}

func runSchedule(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	spec, _ := cmd.Flags().GetString("spec")
	if spec == "" {
		spec = s.cfg.Worker.Schedule
	}
	return s.runner.Schedule(cmd.Context(), spec)
}

func runPublishCatalog(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		key = s.cfg.Catalog.S3Key
	}
	cat, err := s.runner.PublishCatalog(cmd.Context(), data, key)
	if err != nil {
		return err
	}
	fmt.Printf("published catalog version %d (%d splits) to %s\n", cat.Version(), len(cat.All()), key)
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.app.Auth.Register(cmd.Context(), service.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", user.Email, user.ID.Hex())
	return nil
}
