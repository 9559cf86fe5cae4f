package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-bridge/internal/config"
	"github.com/jrsteele09/go-auth-bridge/mappings"
)

func newMappingCmd() *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage identity to backend credential mappings",
		Long: `The mapping commands edit the table the sign-in flow reads. They write to the
configured store, which must be shared with the running server (STORE_TYPE redis or sqlite).`,
	}

	var note string
	addCmd := &cobra.Command{
		Use:   "add <email> <credential>",
		Short: "Add or replace the credential for an email address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMappingRepo(func(repo mappings.Repo) error {
				m := &mappings.Mapping{Email: args[0], Credential: args[1], Note: note}
				if err := m.Validate(); err != nil {
					return err
				}
				if err := repo.Upsert(cmd.Context(), m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mapped %s -> %s\n", mappings.NormalizeEmail(m.Email), mappings.MaskCredential(m.Credential))
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&note, "note", "", "free text kept with the mapping")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List mappings with masked credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMappingRepo(func(repo mappings.Repo) error {
				list, err := repo.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, m := range list {
					fmt.Fprintf(out, "%-40s %s", m.Email, mappings.MaskCredential(m.Credential))
					if m.Note != "" {
						fmt.Fprintf(out, "  # %s", m.Note)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <email>",
		Short: "Remove the mapping for an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMappingRepo(func(repo mappings.Repo) error {
				if err := repo.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", mappings.NormalizeEmail(args[0]))
				return nil
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import mappings from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := mappings.LoadFile(args[0])
			if err != nil {
				return err
			}
			return withMappingRepo(func(repo mappings.Repo) error {
				n, err := mappings.Import(cmd.Context(), repo, list)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d mappings\n", n)
				return nil
			})
		},
	}

	mappingCmd.AddCommand(addCmd, listCmd, deleteCmd, importCmd)
	return mappingCmd
}

// withMappingRepo opens the configured shared store for the duration of fn.
func withMappingRepo(fn func(mappings.Repo) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if cfg.GetStoreType() == config.StoreTypeMemory {
		return fmt.Errorf("mapping commands need a shared store, set STORE_TYPE to %s or %s",
			config.StoreTypeRedis, config.StoreTypeSQLite)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(mappings.NewRepo(st))
}
