package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/imovelware/vendazap/internal/config"
	"github.com/imovelware/vendazap/internal/store"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(tenantAddCmd())
	cmd.AddCommand(tenantListCmd())
	cmd.AddCommand(brokerAddCmd())
	return cmd
}

func tenantAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Register a tenant",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			slug := config.NormalizeSlug(args[0])
			if slug == "" {
				fail("name %q produces an empty slug", args[0])
			}
			st := openStore()
			defer st.Close()
			t, err := st.CreateTenant(context.Background(), slug, args[0])
			if err != nil {
				fail("create tenant: %s", err)
			}
			fmt.Printf("created tenant %d (%s)\n", t.ID, t.Slug)
		},
	}
}

func tenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			tenants, err := st.Tenants(context.Background())
			if err != nil {
				fail("list tenants: %s", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tNAME")
			for _, t := range tenants {
				fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Slug, t.Name)
			}
			w.Flush()
		},
	}
}

func brokerAddCmd() *cobra.Command {
	var phone string
	var pct float64
	cmd := &cobra.Command{
		Use:   "add-broker <tenant-slug> <name>",
		Short: "Register a broker under a tenant",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			st := openStore()
			defer st.Close()
			ctx := context.Background()
			t, err := st.TenantBySlug(ctx, args[0])
			if err != nil {
				fail("tenant %q: %s", args[0], err)
			}
			b := &store.Broker{
				TenantID:      t.ID,
				Name:          args[1],
				Phone:         phone,
				CommissionPct: pct,
				Active:        true,
			}
			if err := st.CreateBroker(ctx, b); err != nil {
				fail("create broker: %s", err)
			}
			fmt.Printf("created broker %s (%s)\n", b.ID, b.Name)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "broker's WhatsApp number")
	cmd.Flags().Float64Var(&pct, "commission", 5, "commission percentage")
	return cmd
}

func openStore() *store.Store {
	cfg := loadConfig()
	st, err := store.Open(filepath.Join(cfg.Data.Dir, "vendazap.db"))
	if err != nil {
		fail("open store: %s", err)
	}
	return st
}
