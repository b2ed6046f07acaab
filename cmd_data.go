package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fapagri/console/internal/api"
	"github.com/fapagri/console/internal/handlers"
	"github.com/fapagri/console/internal/session"
)

// withClient restores the terminal session and hands its authenticated
// client to fn.
func (a *app) withClient(ctx context.Context, fn func(*api.Client) error) error {
	sess, store, err := a.openSession()
	if err != nil {
		return err
	}
	defer store.Close()

	sess.Restore(ctx)
	if sess.State() != session.Authenticated {
		return errSignedOut
	}
	return fn(sess.Client())
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *api.Client) error {
				st, err := c.DashboardStats(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Plantations\t%d\n", st.TotalPlantations)
				fmt.Fprintf(tw, "Blocks\t%d\n", st.TotalBlocks)
				fmt.Fprintf(tw, "Harvest today\t%.2f tons\n", st.TotalHarvestToday)
				fmt.Fprintf(tw, "Harvest this month\t%.2f tons\n", st.TotalHarvestThisMonth)
				return tw.Flush()
			})
		},
	}
}

func newPlantationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plantations",
		Short: "List plantations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *api.Client) error {
				ps, err := c.Plantations(cmd.Context())
				if err != nil {
					return err
				}
				if len(ps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No plantations found.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tAREA\tADDRESS")
				for _, p := range ps {
					area := "-"
					if p.AreaHa != nil {
						area = humanize.Commaf(*p.AreaHa) + " ha"
					}
					addr := "-"
					if p.Address != nil && *p.Address != "" {
						addr = *p.Address
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, area, addr)
				}
				return tw.Flush()
			})
		},
	}
}

func newHarvestsCmd(a *app) *cobra.Command {
	var block, export string
	cmd := &cobra.Command{
		Use:   "harvests",
		Short: "List harvest records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withClient(ctx, func(c *api.Client) error {
				var (
					hs  []api.HarvestRecord
					err error
				)
				if block != "" {
					hs, err = c.HarvestsByBlock(ctx, block)
				} else {
					hs, err = c.Harvests(ctx)
				}
				if err != nil {
					return err
				}
				if export != "" {
					return exportHarvests(ctx, c, hs, export, cmd)
				}
				if len(hs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No harvest records found.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tBATCH\tBLOCK\tTONNES")
				for _, h := range hs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						h.Date.Format("2006-01-02"), h.BatchCode, h.BlockID,
						strconv.FormatFloat(h.TonnesFreshFruitBunches, 'f', 2, 64))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&block, "block", "", "Only records for this block id")
	cmd.Flags().StringVar(&export, "export", "", "Write the records to this .xlsx file instead of printing")
	return cmd
}

func exportHarvests(ctx context.Context, c *api.Client, hs []api.HarvestRecord, path string, cmd *cobra.Command) error {
	users, err := c.Users(ctx)
	if err != nil {
		return err
	}
	f, err := handlers.HarvestWorkbook(hs, users)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(hs), path)
	return nil
}
