package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/service"
	"github.com/avvvet/tapchip-services/internal/chipsvc/uid"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := stores.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Schema is up to date")
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Register unassigned chips from a UID list",
	Long: `Reads one UID per line (or the first column of a CSV file; "-" reads stdin),
normalizes each UID, and creates an unassigned chip for every UID not already
registered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		uids, err := readUIDs(in)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		created, err := stores.Chips.CreateUnassigned(cmd.Context(), uids)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d chips (%d already registered)\n", created, int64(len(uids))-created)
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <uid>",
	Short: "Release a chip so it can be claimed again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reassign(cmd, args[0], "")
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <uid> <user-id>",
	Short: "Assign a chip to a user, replacing any current owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reassign(cmd, args[0], args[1])
	},
}

func reassign(cmd *cobra.Command, rawUID, userID string) error {
	chips, err := service.NewChipService(stores.Chips, stores.Users, stores.Scans)
	if err != nil {
		return err
	}
	chip, err := chips.Reassign(cmd.Context(), rawUID, userID)
	if err != nil {
		return fmt.Errorf("failed to update chip %s: %w", rawUID, err)
	}
	if userID == "" {
		fmt.Printf("Chip %s released\n", chip.UID)
	} else {
		fmt.Printf("Chip %s assigned to %s\n", chip.UID, userID)
	}
	return nil
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User profile commands",
}

var (
	userName  string
	userSlug  string
	userAdmin bool
)

var userCreateCmd = &cobra.Command{
	Use:   "create <auth-subject>",
	Short: "Create a user profile for an identity provider subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := &models.User{AuthSubject: args[0], Name: userName, IsAdmin: userAdmin}
		if userSlug != "" {
			u.Slug = &userSlug
		}
		if err := stores.Users.Create(cmd.Context(), u); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Printf("User %s created\n", u.ID)
		return nil
	},
}

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Company commands",
}

var companyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a company for hospitality and campaign chips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := &models.Company{Name: args[0]}
		if err := stores.Companies.Create(cmd.Context(), c); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		fmt.Printf("Company %s created\n", c.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userSlug, "slug", "", "public profile slug")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant administrator rights")
	userCmd.AddCommand(userCreateCmd)
	companyCmd.AddCommand(companyCreateCmd)
}

// readUIDs reads the first column of each record, normalizes it and drops
// blanks, a "uid" header, and repeats.
func readUIDs(in io.Reader) ([]string, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true

	seen := map[string]bool{}
	var uids []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 || strings.EqualFold(strings.TrimSpace(rec[0]), "uid") {
			continue
		}
		u := uid.Normalize(rec[0])
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		uids = append(uids, u)
	}
	return uids, nil
}
