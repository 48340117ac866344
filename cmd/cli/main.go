package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hemovault/bloodbank/internal/config"
	"github.com/hemovault/bloodbank/pkg/core/services"
	"github.com/hemovault/bloodbank/pkg/db"
	"github.com/hemovault/bloodbank/pkg/postgres"
	"github.com/hemovault/bloodbank/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	database *postgres.DB
	logger   *zap.Logger
	ctx      context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bloodbank",
		Short: "Blood bank CLI - Manage donors, inventory and blood requests",
		Long:  `A CLI tool for tracking blood donors, receivers, unit inventory and the request fulfillment workflow.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "prod", "Environment name used for log files")

	rootCmd.AddCommand(initDBCmd())
	rootCmd.AddCommand(listBloodTypesCmd())
	rootCmd.AddCommand(listDonorsCmd())
	rootCmd.AddCommand(addDonorCmd())
	rootCmd.AddCommand(updateDonorCmd())
	rootCmd.AddCommand(deleteDonorCmd())
	rootCmd.AddCommand(listReceiversCmd())
	rootCmd.AddCommand(addReceiverCmd())
	rootCmd.AddCommand(deleteReceiverCmd())
	rootCmd.AddCommand(listUnitsCmd())
	rootCmd.AddCommand(setUnitStatusCmd())
	rootCmd.AddCommand(recordDonationCmd())
	rootCmd.AddCommand(markExpiredCmd())
	rootCmd.AddCommand(listRequestsCmd())
	rootCmd.AddCommand(createRequestCmd())
	rootCmd.AddCommand(processRequestCmd())
	rootCmd.AddCommand(cancelRequestCmd())
	rootCmd.AddCommand(listCandidatesCmd())
	rootCmd.AddCommand(fulfillRequestCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and the database connection
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	app.logger.Info("Connecting to database",
		zap.String("host", app.cfg.Database.Host),
		zap.String("database", app.cfg.Database.Name))
	app.database, err = postgres.NewDB(app.ctx, app.cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.logger.Info("Database connected successfully")

	return nil
}

// Command definitions

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create tables, seed blood types and repair schema drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.database.RunMigrations(app.ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			if err := app.database.EnsureSchema(app.ctx); err != nil {
				return fmt.Errorf("failed to repair schema: %w", err)
			}

			fmt.Println("\n✓ Database initialized")
			return nil
		},
	}
}

func listBloodTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listBloodTypes",
		Short: "List the blood type lookup table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := app.database.GetBloodTypes(app.ctx)
			if err != nil {
				return err
			}

			fmt.Println()
			for _, bt := range types {
				fmt.Printf("- #%d %s\n", bt.ID, bt.Name)
			}
			return nil
		},
	}
}

func listDonorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listDonors [search_term]",
		Short: "List donors, optionally filtered by name, email or phone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var donors []db.Donor
			var err error
			if len(args) > 0 {
				donors, err = app.database.SearchDonors(app.ctx, args[0])
			} else {
				donors, err = app.database.GetAllDonors(app.ctx)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d donors:\n\n", len(donors))
			for _, d := range donors {
				last := "never donated"
				if d.LastDonationDate != nil {
					last = "last donated " + d.LastDonationDate.Format("2006-01-02")
				}
				fmt.Printf("- #%d %s %s (%s) - %s - %s\n",
					d.ID, d.FirstName, d.LastName, d.BloodType, d.PhoneNumber, last)
			}
			return nil
		},
	}
	return cmd
}

func addDonorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addDonor <first_name> <last_name> <dob> <blood_type>",
		Short: "Register a new donor (dob as YYYY-MM-DD, blood type like O-)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			dob, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("dob must be YYYY-MM-DD: %w", err)
			}

			gender, _ := cmd.Flags().GetString("gender")
			phone, _ := cmd.Flags().GetString("phone")
			email, _ := cmd.Flags().GetString("email")
			address, _ := cmd.Flags().GetString("address")

			donorID, err := services.RegisterDonor(app.ctx, app.database, app.database,
				app.logger, services.DonorRegistration{
					FirstName:   args[0],
					LastName:    args[1],
					DateOfBirth: dob,
					Gender:      gender,
					BloodType:   args[3],
					PhoneNumber: phone,
					Email:       email,
					Address:     address,
				})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Donor #%d registered\n", donorID)
			return nil
		},
	}

	cmd.Flags().String("gender", "", "Donor gender")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("address", "", "Postal address")

	return cmd
}

func updateDonorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updateDonor <donor_id>",
		Short: "Update a donor's contact details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			donorID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("donor_id must be a number: %w", err)
			}

			donor, err := app.database.GetDonorByID(app.ctx, donorID)
			if err != nil {
				return err
			}
			if donor == nil {
				return fmt.Errorf("donor %d not found", donorID)
			}

			if cmd.Flags().Changed("phone") {
				donor.PhoneNumber, _ = cmd.Flags().GetString("phone")
			}
			if cmd.Flags().Changed("email") {
				donor.Email, _ = cmd.Flags().GetString("email")
			}
			if cmd.Flags().Changed("address") {
				donor.Address, _ = cmd.Flags().GetString("address")
			}

			if err := app.database.UpdateDonor(app.ctx, donor); err != nil {
				return err
			}

			fmt.Printf("\n✓ Donor #%d updated\n", donorID)
			return nil
		},
	}

	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("address", "", "Postal address")

	return cmd
}

func deleteDonorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deleteDonor <donor_id>",
		Short: "Remove a donor record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			donorID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("donor_id must be a number: %w", err)
			}

			if err := app.database.DeleteDonor(app.ctx, donorID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Donor #%d deleted\n", donorID)
			return nil
		},
	}
}

func listReceiversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listReceivers [search_term]",
		Short: "List receivers, optionally filtered by name, hospital or contact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var receivers []db.Receiver
			var err error
			if len(args) > 0 {
				receivers, err = app.database.SearchReceivers(app.ctx, args[0])
			} else {
				receivers, err = app.database.GetAllReceivers(app.ctx)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d receivers:\n\n", len(receivers))
			for _, r := range receivers {
				fmt.Printf("- #%d %s %s (%s) - %s\n",
					r.ID, r.FirstName, r.LastName, r.BloodType, r.HospitalName)
			}
			return nil
		},
	}
}

func addReceiverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addReceiver <first_name> <last_name> <dob> <blood_type>",
		Short: "Register a new receiver (dob as YYYY-MM-DD, blood type like B+)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			dob, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("dob must be YYYY-MM-DD: %w", err)
			}

			gender, _ := cmd.Flags().GetString("gender")
			reason, _ := cmd.Flags().GetString("reason")
			hospital, _ := cmd.Flags().GetString("hospital")
			ward, _ := cmd.Flags().GetString("ward")
			contactName, _ := cmd.Flags().GetString("contact-name")
			contactPhone, _ := cmd.Flags().GetString("contact-phone")

			receiverID, err := services.RegisterReceiver(app.ctx, app.database, app.database,
				app.logger, services.ReceiverRegistration{
					FirstName:            args[0],
					LastName:             args[1],
					DateOfBirth:          dob,
					Gender:               gender,
					BloodType:            args[3],
					ReasonForTransfusion: reason,
					HospitalName:         hospital,
					WardDetails:          ward,
					ContactPersonName:    contactName,
					ContactPersonPhone:   contactPhone,
				})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Receiver #%d registered\n", receiverID)
			return nil
		},
	}

	cmd.Flags().String("gender", "", "Receiver gender (required)")
	cmd.Flags().String("reason", "", "Reason for transfusion (required)")
	cmd.Flags().String("hospital", "", "Hospital name (required)")
	cmd.Flags().String("ward", "", "Ward details")
	cmd.Flags().String("contact-name", "", "Contact person name (required)")
	cmd.Flags().String("contact-phone", "", "Contact person phone (required)")

	return cmd
}

func deleteReceiverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deleteReceiver <receiver_id>",
		Short: "Remove a receiver record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiverID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("receiver_id must be a number: %w", err)
			}

			if err := app.database.DeleteReceiver(app.ctx, receiverID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Receiver #%d deleted\n", receiverID)
			return nil
		},
	}
}

func listUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listUnits",
		Short: "List all blood units, newest collection first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := app.database.GetAllUnits(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d blood units:\n\n", len(units))
			for _, u := range units {
				fmt.Printf("- #%d %s %s | collected %s | expires %s | %dml | %s\n",
					u.ID, u.BloodType, u.Status,
					u.CollectionDate.Format("2006-01-02"),
					u.ExpirationDate.Format("2006-01-02"),
					u.VolumeML, u.DonorName)
			}
			return nil
		},
	}
}

func setUnitStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setUnitStatus <unit_id> <status>",
		Short: "Overwrite a unit's status (Available, Assigned, Used, Expired, Quarantined, Discarded)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("unit_id must be a number: %w", err)
			}

			status, err := db.ParseUnitStatus(args[1])
			if err != nil {
				return err
			}

			affected, err := app.database.UpdateUnitStatus(app.ctx, unitID, status)
			if err != nil {
				return err
			}
			if !affected {
				return fmt.Errorf("unit %d not found", unitID)
			}

			fmt.Printf("\n✓ Unit #%d is now %s\n", unitID, status)
			return nil
		},
	}
}

func recordDonationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordDonation <donor_id> <collection_date> <expiration_date>",
		Short: "Record a donation as a new Available blood unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			donorID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("donor_id must be a number: %w", err)
			}
			collected, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("collection_date must be YYYY-MM-DD: %w", err)
			}
			expires, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("expiration_date must be YYYY-MM-DD: %w", err)
			}

			location, _ := cmd.Flags().GetString("location")
			volume, _ := cmd.Flags().GetInt("volume")

			unitID, err := services.RecordDonation(app.ctx, app.database, app.database, app.logger, services.Donation{
				DonorID:         donorID,
				CollectionDate:  collected,
				ExpirationDate:  expires,
				StorageLocation: location,
				VolumeML:        volume,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Blood unit #%d recorded\n", unitID)
			return nil
		},
	}

	cmd.Flags().String("location", "", "Storage location")
	cmd.Flags().Int("volume", 0, "Volume in ml (default 450)")

	return cmd
}

func markExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "markExpired",
		Short: "Move Available units past their expiration date to Expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expired, err := services.MarkExpired(app.ctx, app.database, app.logger)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %d units marked expired\n", expired)
			return nil
		},
	}
}

func listRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listRequests [search_term]",
		Short: "List blood requests, optionally filtered by status or search term",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statusFilter, _ := cmd.Flags().GetString("status")

			var requests []db.BloodRequest
			var err error
			switch {
			case len(args) > 0:
				requests, err = app.database.SearchRequests(app.ctx, args[0])
			default:
				requests, err = app.database.GetAllRequests(app.ctx, db.RequestStatus(statusFilter))
			}
			if err != nil {
				return err
			}
			if len(args) > 0 {
				requests = services.FilterRequestsByStatus(requests, db.RequestStatus(statusFilter))
			}

			fmt.Printf("\nFound %d requests:\n\n", len(requests))
			for _, r := range requests {
				fmt.Printf("- #%d %s needs %d x %s (%d fulfilled) | %s | %s | %s\n",
					r.ID, r.ReceiverName, r.UnitsRequired, r.BloodType, r.UnitsFulfilled,
					r.Priority, r.Status, r.RequestDate.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().String("status", "", "Filter by status (Pending, Processing, Fulfilled, Cancelled)")

	return cmd
}

func createRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createRequest <receiver_id> <units_required>",
		Short: "Create a blood request for a receiver's blood type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiverID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("receiver_id must be a number: %w", err)
			}
			unitsRequired, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("units_required must be a number: %w", err)
			}

			priority, _ := cmd.Flags().GetString("priority")
			notes, _ := cmd.Flags().GetString("notes")

			requestID, err := services.CreateRequest(app.ctx, app.database, app.database,
				app.logger, receiverID, unitsRequired, priority, notes)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Blood request #%d created\n", requestID)
			return nil
		},
	}

	cmd.Flags().String("priority", "Medium", "Priority (Urgent, High, Medium, Low)")
	cmd.Flags().String("notes", "", "Free-form notes")

	return cmd
}

func processRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processRequest <request_id>",
		Short: "Move a Pending request into Processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a number: %w", err)
			}

			if err := services.ProcessRequest(app.ctx, app.database, app.logger, requestID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Request #%d is now Processing\n", requestID)
			return nil
		},
	}
}

func cancelRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancelRequest <request_id>",
		Short: "Cancel a Pending or Processing request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a number: %w", err)
			}

			if err := services.CancelRequest(app.ctx, app.database, app.logger, requestID); err != nil {
				return err
			}

			fmt.Printf("\n✓ Request #%d cancelled\n", requestID)
			return nil
		},
	}
}

func listCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listCandidates <request_id>",
		Short: "List Available units matching a request's blood type, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a number: %w", err)
			}

			request, candidates, err := services.ListCandidates(app.ctx, app.database, app.database, requestID)
			if err != nil {
				return err
			}

			fmt.Printf("\nRequest #%d: %s needs %d more %s units\n\n",
				request.ID, request.ReceiverName, request.UnitsNeeded(), request.BloodType)
			if len(candidates) == 0 {
				fmt.Println("No matching units are available.")
				return nil
			}
			for _, u := range candidates {
				fmt.Printf("- #%d collected %s | expires %s | %dml | %s\n",
					u.ID,
					u.CollectionDate.Format("2006-01-02"),
					u.ExpirationDate.Format("2006-01-02"),
					u.VolumeML, u.DonorName)
			}
			return nil
		},
	}
}

func fulfillRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fulfillRequest <request_id> <unit_id>...",
		Short: "Assign the selected Available units to a request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("request_id must be a number: %w", err)
			}

			unitIDs := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				unitID, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("unit_id %q must be a number: %w", arg, err)
				}
				unitIDs = append(unitIDs, unitID)
			}

			result, err := services.FulfillRequest(app.ctx, app.database, app.database,
				app.logger, requestID, unitIDs)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Assigned %d of %d units to request #%d (status: %s)\n",
				result.AssignedCount, len(unitIDs), requestID, result.NewStatus)
			for _, ue := range result.UnitErrors {
				fmt.Printf("  ✗ unit #%d: %v\n", ue.UnitID, ue.Err)
			}
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <inventory|requests|donors|monthly>",
		Short: "Export an aggregation report as an XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := services.ReportKind(args[0])

			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			year, _ := cmd.Flags().GetInt("year")
			out, _ := cmd.Flags().GetString("out")

			params := services.ReportParams{
				From: time.Now().AddDate(0, -1, 0),
				To:   time.Now(),
				Year: year,
			}
			if fromStr != "" {
				from, err := time.Parse("2006-01-02", fromStr)
				if err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
				params.From = from
			}
			if toStr != "" {
				to, err := time.Parse("2006-01-02", toStr)
				if err != nil {
					return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
				}
				params.To = to
			}
			if params.Year == 0 {
				params.Year = time.Now().Year()
			}

			if out == "" {
				reportDir := app.cfg.ReportDir
				if reportDir == "" {
					reportDir = "reports"
				}
				if err := os.MkdirAll(reportDir, 0755); err != nil {
					return fmt.Errorf("failed to create report directory: %w", err)
				}
				out = filepath.Join(reportDir,
					fmt.Sprintf("%s_%s.xlsx", kind, time.Now().Format("2006-01-02_15-04-05")))
			}

			rows, err := services.ExportReport(app.ctx, app.database, app.logger, kind, params, out)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Report written to %s (%d rows)\n", out, rows)
			return nil
		},
	}

	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD) for period reports")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD) for period reports")
	cmd.Flags().Int("year", 0, "Year for the monthly report (defaults to current year)")
	cmd.Flags().String("out", "", "Output path (defaults to the configured report directory)")

	return cmd
}
