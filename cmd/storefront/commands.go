package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/domain"
	"storefront/internal/services"
	"storefront/internal/validate"
)

var reassignCmd = &cobra.Command{
	Use:   "reassign [product-id]",
	Short: "Recompute shop membership for one product or the whole catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			id, ok := validate.ID(args[0])
			if !ok {
				return fmt.Errorf("%w: product id", domain.ErrValidation)
			}
			slugs, err := a.deps.Assign.ReassignOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			if slugs == nil {
				return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
			}
			return printJSON(map[string]any{"id": id, "shops": slugs})
		}
		sum, err := a.deps.Assign.ReassignAll(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(sum)
	},
}

var majorFilter string

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Recompute and print category counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		major, ok := validate.MajorCategory(majorFilter)
		if !ok {
			return fmt.Errorf("%w: major", domain.ErrValidation)
		}
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		cats, err := a.deps.Categories.GetCategories(cmd.Context(), domain.MajorCategory(major), true)
		if err != nil {
			return err
		}
		return printJSON(cats)
	},
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <admin-key>",
	Short: "Print a bcrypt hash for ADMIN_KEY_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := services.HashKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&majorFilter, "major", "", "AFFORDABLE, LUXURY or ALL")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
