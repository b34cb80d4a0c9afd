package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/internal/repository"
	"github.com/noah-isme/volunteer-roster-api/internal/service"
	"github.com/noah-isme/volunteer-roster-api/pkg/cache"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema (postgres) or indexes (mongo)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.backend.Prepare(app.ctx); err != nil {
				return fmt.Errorf("prepare %s store: %w", app.backend.Driver, err)
			}
			fmt.Printf("%s store is ready\n", app.backend.Driver)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var dryRun, flushCache bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Scan every reference list and fix missing or dangling entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			consistency := service.NewConsistencyService(app.backend.Stores, nil, app.logger)
			run := consistency.Repair
			if dryRun {
				run = consistency.Check
			}
			report, err := run(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nScanned %d organizations, %d volunteers, %d events, %d shifts, %d assignments\n",
				report.Organizations, report.Volunteers, report.Events, report.Shifts, report.Assignments)
			fmt.Printf("Found %d issue(s)\n\n", len(report.Issues))
			for _, issue := range report.Issues {
				status := "pending"
				switch {
				case issue.Error != "":
					status = "failed: " + issue.Error
				case !report.DryRun:
					status = "fixed"
				}
				fmt.Printf("- %s\n    %s [%s]\n", issue.Reason, issue.Action(), status)
			}
			if !report.DryRun {
				fmt.Printf("\nFixed %d of %d\n", report.Fixed, len(report.Issues))
			}

			if flushCache && !report.DryRun {
				return flushRosterCache()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report issues without changing anything")
	cmd.Flags().BoolVar(&flushCache, "flush-cache", false, "Drop cached roster listings afterwards")
	return cmd
}

func flushRosterCache() error {
	if !app.cfg.Cache.Enabled {
		fmt.Println("Cache disabled, nothing to flush")
		return nil
	}
	client, err := cache.NewRedis(app.cfg.Redis, app.cfg.Cache)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	repo := repository.NewCacheRepository(client, app.logger)
	defer repo.Close() //nolint:errcheck
	if err := repo.DeleteByPattern(app.ctx, "roster:*"); err != nil {
		return err
	}
	fmt.Println("Roster cache flushed")
	return nil
}

func repairCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Replay pending repair tasks once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores := app.backend.Stores
			repairs := service.NewRepairService(stores.References, stores.Repairs, nil, service.RepairConfig{
				MaxRetries: app.cfg.Repair.MaxRetries,
				BatchSize:  limit,
			}, app.logger)

			tasks, err := stores.Repairs.ListPending(app.ctx, limit)
			if err != nil {
				return fmt.Errorf("list repair tasks: %w", err)
			}
			resolved := 0
			for _, task := range tasks {
				if err := repairs.Replay(app.ctx, task); err != nil {
					fmt.Printf("- %s %s: %v\n", task.ID, task.Op(), err)
					continue
				}
				resolved++
			}
			fmt.Printf("Resolved %d of %d pending task(s)\n", resolved, len(tasks))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum tasks to replay")
	return cmd
}

func tokenCmd() *cobra.Command {
	var req service.TokenRequest
	var role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Mint a signed API token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"store": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = models.UserRole(role)
			cfg := service.TokenConfig{Secret: app.cfg.JWT.Secret, Expiration: app.cfg.JWT.Expiration, Issuer: app.cfg.JWT.Issuer}
			if ttl > 0 {
				cfg.Expiration = ttl
			}
			signed, expires, err := service.NewTokenService(cfg, nil).Issue(req)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			fmt.Printf("# expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.UserID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or VOLUNTEER")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email claim")
	cmd.Flags().StringVar(&req.OrganizationID, "org", "", "Organization an admin is scoped to")
	cmd.Flags().StringVar(&req.VolunteerID, "volunteer", "", "Volunteer id (required for VOLUNTEER)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Override token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "org", Short: "Manage organizations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Register an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := service.NewRosterService(app.backend.Stores, nil, nil, nil, app.logger)
			org, err := roster.CreateOrganization(app.ctx, dto.CreateOrganizationRequest{Name: args[0]})
			if err != nil {
				return err
			}
			fmt.Printf("Organization created: %s (%s)\n", org.Name, org.ID)
			return nil
		},
	})
	return cmd
}

func volunteerCmd() *cobra.Command {
	var req dto.CreateVolunteerRequest
	cmd := &cobra.Command{Use: "volunteer", Short: "Manage volunteers"}
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a volunteer profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster := service.NewRosterService(app.backend.Stores, nil, nil, nil, app.logger)
			vol, err := roster.CreateVolunteer(app.ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("Volunteer created: %s (%s)\n", vol.FullName(), vol.ID)
			return nil
		},
	}
	create.Flags().StringVar(&req.FirstName, "first", "", "First name")
	create.Flags().StringVar(&req.LastName, "last", "", "Last name")
	create.Flags().StringVar(&req.Email, "email", "", "Email address")
	create.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.AddCommand(create)
	return cmd
}
