package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	v1 "github.com/emrgen/grantcore/apis/v1"
)

var refCmd = &cobra.Command{
	Use:   "ref",
	Short: "proposal to literature reference commands",
}

func init() {
	refCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	refCmd.AddCommand(linkCmd())
	refCmd.AddCommand(unlinkCmd())
	refCmd.AddCommand(topReferencesCmd())
}

func linkCmd() *cobra.Command {
	var docID string
	var entryID string
	var score float64
	var system bool

	command := &cobra.Command{
		Use:   "link",
		Short: "link a proposal to an entry, or rescore an existing link",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"doc-id", "entry-id", "score"}) {
				return
			}

			origin := "user"
			if system {
				origin = "system"
			}

			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			res, err := client.Link(ctx, &v1.LinkRequest{
				DocumentId:     docID,
				EntryId:        entryID,
				RelevanceScore: score,
				CreatedBy:      origin,
			})
			if err != nil {
				printError(err)
				return
			}

			printReferences(res.Reference)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&entryID, "entry-id", "e", "", "entry id (required)")
	command.Flags().Float64Var(&score, "score", 0, "relevance score in [0, 1] (required)")
	command.Flags().BoolVar(&system, "system", false, "mark the link as system created so it decays")

	return command
}

func unlinkCmd() *cobra.Command {
	var docID string
	var entryID string

	command := &cobra.Command{
		Use:   "unlink",
		Short: "remove a reference",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"doc-id", "entry-id"}) {
				return
			}

			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			if _, err := client.Unlink(ctx, &v1.UnlinkRequest{DocumentId: docID, EntryId: entryID}); err != nil {
				printError(err)
				return
			}
			color.Green("reference removed")
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&entryID, "entry-id", "e", "", "entry id (required)")

	return command
}

func topReferencesCmd() *cobra.Command {
	var docID string
	var k int

	command := &cobra.Command{
		Use:   "top",
		Short: "list the best scored references of a proposal",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"doc-id"}) {
				return
			}

			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			res, err := client.TopReferences(ctx, &v1.TopReferencesRequest{DocumentId: docID, K: k})
			if err != nil {
				printError(err)
				return
			}

			printReferences(res.References...)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVarP(&k, "k", "k", 10, "number of references")

	return command
}

func printReferences(refs ...*v1.Reference) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Entry", "Score", "By", "Created At", "Updated At"})
	for _, ref := range refs {
		created, updated := ref.CreatedAt, ref.UpdatedAt
		table.Append([]string{
			ref.EntryId,
			fmt.Sprintf("%.4f", ref.RelevanceScore),
			ref.CreatedBy,
			shortTime(&created),
			shortTime(&updated),
		})
	}
	table.Render()
	if len(refs) == 0 {
		color.Yellow("no references")
	}
}
