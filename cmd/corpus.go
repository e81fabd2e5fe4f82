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

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "literature corpus commands",
}

func init() {
	corpusCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	corpusCmd.AddCommand(ingestEntryCmd())
	corpusCmd.AddCommand(getEntryCmd())
	corpusCmd.AddCommand(searchCmd())
	corpusCmd.AddCommand(recommendCmd())
	corpusCmd.AddCommand(citationsCmd())
	corpusCmd.AddCommand(retractEntryCmd())
	corpusCmd.AddCommand(indexStatsCmd())
}

func ingestEntryCmd() *cobra.Command {
	var entry v1.CorpusEntry
	var published string
	var embeddingFile string

	command := &cobra.Command{
		Use:     "ingest",
		Short:   "add or replace a corpus entry",
		Example: "grantcore corpus ingest -i arxiv:2401.00001 --source arxiv -t <title> --published 2024-01-01 -f embedding.json",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"entry-id", "title", "embedding"}) {
				return
			}

			embedding, err := readEmbedding(embeddingFile)
			if err != nil {
				printError(err)
				return
			}
			entry.Embedding = embedding
			if published != "" {
				entry.PublishedAt, err = time.Parse(time.DateOnly, published)
				if err != nil {
					printError(err)
					return
				}
			}

			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			if _, err := client.IngestEntry(ctx, &v1.IngestEntryRequest{Entry: &entry}); err != nil {
				printError(err)
				return
			}
			color.Green("ingested %s", entry.Id)
		},
	}

	command.Flags().StringVarP(&entry.Id, "entry-id", "i", "", "entry id (required)")
	command.Flags().StringVar(&entry.Source, "source", "manual", "arxiv, pubmed, crossref, semantic_scholar or manual")
	command.Flags().StringVarP(&entry.Title, "title", "t", "", "title (required)")
	command.Flags().StringVarP(&entry.Category, "category", "c", "", "category")
	command.Flags().StringVar(&published, "published", "", "publication date, YYYY-MM-DD")
	command.Flags().Int64Var(&entry.CitationCount, "citations", 0, "citation count")
	command.Flags().StringVarP(&embeddingFile, "embedding", "f", "", "JSON file with the embedding, - for stdin (required)")

	return command
}

func getEntryCmd() *cobra.Command {
	var entryID string

	command := &cobra.Command{
		Use:   "get",
		Short: "get a corpus entry",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"entry-id"}) {
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
			res, err := client.GetEntry(ctx, &v1.GetEntryRequest{Id: entryID})
			if err != nil {
				printError(err)
				return
			}

			printEntries(res.Entry)
			printField("Dimension", strconv.Itoa(len(res.Entry.Embedding)))
		},
	}

	command.Flags().StringVarP(&entryID, "entry-id", "i", "", "entry id (required)")

	return command
}

func searchCmd() *cobra.Command {
	var embeddingFile string
	var k int
	var categories []string
	var from, to string
	var withProposals bool

	command := &cobra.Command{
		Use:   "search",
		Short: "find the entries most similar to an embedding",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"embedding"}) {
				return
			}

			embedding, err := readEmbedding(embeddingFile)
			if err != nil {
				printError(err)
				return
			}
			req := &v1.SearchRequest{
				Embedding:     embedding,
				K:             k,
				Categories:    categories,
				WithProposals: withProposals,
			}
			if req.From, err = parseDate(from); err != nil {
				printError(err)
				return
			}
			if req.To, err = parseDate(to); err != nil {
				printError(err)
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
			res, err := client.Search(ctx, req)
			if err != nil {
				printError(err)
				return
			}

			printHits(res.Hits, withProposals)
		},
	}

	command.Flags().StringVarP(&embeddingFile, "embedding", "f", "", "JSON file with the query embedding, - for stdin (required)")
	command.Flags().IntVarP(&k, "k", "k", 10, "number of results")
	command.Flags().StringSliceVarP(&categories, "category", "c", nil, "only these categories")
	command.Flags().StringVar(&from, "from", "", "published on or after, YYYY-MM-DD")
	command.Flags().StringVar(&to, "to", "", "published before, YYYY-MM-DD")
	command.Flags().BoolVar(&withProposals, "with-proposals", false, "list the proposals referencing each hit")

	return command
}

func recommendCmd() *cobra.Command {
	var docID string
	var k int

	command := &cobra.Command{
		Use:   "recommend",
		Short: "suggest entries for a proposal from its best references",
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
			res, err := client.Recommend(ctx, &v1.RecommendRequest{DocumentId: docID, K: k})
			if err != nil {
				printError(err)
				return
			}

			printHits(res.Hits, false)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVarP(&k, "k", "k", 10, "number of suggestions")

	return command
}

func citationsCmd() *cobra.Command {
	var entryID string
	var count int64

	command := &cobra.Command{
		Use:   "citations",
		Short: "set the citation count of an entry",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"entry-id", "count"}) {
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
			_, err = client.RefreshCitations(ctx, &v1.RefreshCitationsRequest{Id: entryID, CitationCount: count})
			if err != nil {
				printError(err)
				return
			}
			color.Green("%s has %d citations", entryID, count)
		},
	}

	command.Flags().StringVarP(&entryID, "entry-id", "i", "", "entry id (required)")
	command.Flags().Int64Var(&count, "count", 0, "citation count (required)")

	return command
}

func retractEntryCmd() *cobra.Command {
	var entryID string

	command := &cobra.Command{
		Use:   "retract",
		Short: "remove an entry, its references and its embedding",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"entry-id"}) {
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
			if _, err := client.RetractEntry(ctx, &v1.RetractEntryRequest{Id: entryID}); err != nil {
				printError(err)
				return
			}
			color.Green("retracted %s", entryID)
		},
	}

	command.Flags().StringVarP(&entryID, "entry-id", "i", "", "entry id (required)")

	return command
}

func indexStatsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "stats",
		Short: "show the shape of the vector index",
		Run: func(cmd *cobra.Command, args []string) {
			client, err := newClient()
			if err != nil {
				printError(err)
				return
			}
			defer client.Close()

			ctx, cancel := requestContext()
			defer cancel()
			res, err := client.IndexStats(ctx, &v1.IndexStatsRequest{})
			if err != nil {
				printError(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Generation", "Entries", "Lists", "Min List", "Max List", "Rebuilding"})
			table.Append([]string{
				strconv.FormatUint(res.Generation, 10),
				strconv.Itoa(res.Entries),
				strconv.Itoa(res.Lists),
				strconv.Itoa(res.MinListSize),
				strconv.Itoa(res.MaxListSize),
				strconv.FormatBool(res.Rebuilding),
			})
			table.Render()
		},
	}

	return command
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func printEntries(entries ...*v1.CorpusEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Source", "Title", "Category", "Published", "Citations"})
	for _, e := range entries {
		table.Append([]string{
			e.Id,
			e.Source,
			e.Title,
			e.Category,
			e.PublishedAt.Format(time.DateOnly),
			strconv.FormatInt(e.CitationCount, 10),
		})
	}
	table.Render()
}

func printHits(hits []*v1.SearchHit, withProposals bool) {
	header := []string{"#", "ID", "Similarity", "Title", "Category", "Published"}
	if withProposals {
		header = append(header, "Proposals")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	for i, hit := range hits {
		row := []string{
			strconv.Itoa(i + 1),
			hit.Entry.Id,
			fmt.Sprintf("%.4f", hit.Similarity),
			hit.Entry.Title,
			hit.Entry.Category,
			hit.Entry.PublishedAt.Format(time.DateOnly),
		}
		if withProposals {
			row = append(row, strings.Join(hit.DocumentIds, "\n"))
		}
		table.Append(row)
	}
	table.Render()
}
