package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	v1 "github.com/emrgen/grantcore/apis/v1"
)

func trendCmd() *cobra.Command {
	var windowHours int
	var top int

	command := &cobra.Command{
		Use:   "trend",
		Short: "rank the research clusters that grew most in the latest window",
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			res, err := client.Trends(ctx, &v1.TrendsRequest{WindowHours: windowHours, Top: top})
			if err != nil {
				printError(err)
				return
			}

			if len(res.Rising) == 0 {
				color.Yellow("no dated entries in the corpus")
				return
			}
			color.Cyan("%d entries in %d buckets", res.Entries, res.Buckets)

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"#", "Bucket", "Size", "Previous", "Growth", "Categories", "Sample"})
			for i, t := range res.Rising {
				sample := t.Members
				if len(sample) > 3 {
					sample = sample[:3]
				}
				table.Append([]string{
					strconv.Itoa(i + 1),
					t.Bucket.Format(time.DateOnly),
					strconv.Itoa(t.Size),
					strconv.Itoa(t.PreviousSize),
					fmt.Sprintf("%+.2f", t.Growth),
					strings.Join(t.Categories, ", "),
					strings.Join(sample, "\n"),
				})
			}
			table.Render()
		},
	}

	command.Flags().IntVar(&windowHours, "window", 0, "bucket width in hours (default from server config)")
	command.Flags().IntVar(&top, "top", 10, "number of clusters to show")

	return command
}
