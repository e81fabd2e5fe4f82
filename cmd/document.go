package cmd

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	v1 "github.com/emrgen/grantcore/apis/v1"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "proposal commands",
}

func init() {
	docCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	docCmd.AddCommand(createDocCmd())
	docCmd.AddCommand(getDocCmd())
	docCmd.AddCommand(listDocCmd())
	docCmd.AddCommand(updateDocCmd())
	docCmd.AddCommand(transitionDocCmd())
	docCmd.AddCommand(deleteDocCmd())
	docCmd.AddCommand(listDocVersionsCmd())
	docCmd.AddCommand(docStatsCmd())
	docCmd.AddCommand(duplicateDocCmd())
}

func createDocCmd() *cobra.Command {
	var ownerID string
	var title string
	var field string
	var agency string
	var keywords []string
	var sections []string

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a proposal",
		Example: "grantcore doc create -o <owner-id> -t <title> -s summary=<text> -s aims=@aims.md",
		Run: func(cmd *cobra.Command, args []string) {
			if ownerID == "" {
				ownerID = readContext().Owner
			}
			if ownerID == "" {
				color.Red("missing: --owner-id")
				return
			}
			content, err := parseSections(sections)
			if err != nil {
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
			res, err := client.CreateDocument(ctx, &v1.CreateDocumentRequest{
				OwnerId:       ownerID,
				Title:         title,
				ResearchField: field,
				FundingAgency: agency,
				Keywords:      keywords,
				Sections:      content,
			})
			if err != nil {
				printError(err)
				return
			}

			printDocuments(res.Document)
		},
	}

	command.Flags().StringVarP(&ownerID, "owner-id", "o", "", "owner id (default from context)")
	command.Flags().StringVarP(&title, "title", "t", "", "title")
	command.Flags().StringVar(&field, "field", "", "research field")
	command.Flags().StringVar(&agency, "agency", "", "funding agency")
	command.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keywords")
	command.Flags().StringArrayVarP(&sections, "section", "s", nil, "section as name=text or name=@file")

	return command
}

func getDocCmd() *cobra.Command {
	var docID string
	var versionID string

	command := &cobra.Command{
		Use:   "get",
		Short: "get a proposal with its head sections, or one version",
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

			if versionID != "" {
				res, err := client.GetVersion(ctx, &v1.GetVersionRequest{Id: versionID})
				if err != nil {
					printError(err)
					return
				}
				printVersions(res.Version)
				printSections(res.Version.Sections)
				return
			}

			res, err := client.GetDocument(ctx, &v1.GetDocumentRequest{Id: docID})
			if err != nil {
				printError(err)
				return
			}
			printDocuments(res.Document)
			printField("Title", res.Document.Title)
			printField("Field", res.Document.ResearchField)
			printField("Agency", res.Document.FundingAgency)
			printField("Keywords", strings.Join(res.Document.Keywords, ", "))
			printSections(res.Sections)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&versionID, "version-id", "v", "", "show this version instead of the head")

	return command
}

func listDocCmd() *cobra.Command {
	var ownerID string
	var state string
	var query string
	var orderBy string
	var desc bool
	var offset int
	var limit int

	command := &cobra.Command{
		Use:   "list",
		Short: "list the proposals of an owner",
		Run: func(cmd *cobra.Command, args []string) {
			if ownerID == "" {
				ownerID = readContext().Owner
			}
			if ownerID == "" {
				color.Red("missing: --owner-id")
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
			res, err := client.ListDocuments(ctx, &v1.ListDocumentsRequest{
				OwnerId: ownerID,
				State:   state,
				Query:   query,
				OrderBy: orderBy,
				Desc:    desc,
				Offset:  offset,
				Limit:   limit,
			})
			if err != nil {
				printError(err)
				return
			}

			printDocuments(res.Documents...)
			printField("Total", strconv.FormatInt(res.Total, 10))
		},
	}

	command.Flags().StringVarP(&ownerID, "owner-id", "o", "", "owner id (default from context)")
	command.Flags().StringVar(&state, "state", "", "only proposals in this state")
	command.Flags().StringVarP(&query, "query", "q", "", "match title or research field")
	command.Flags().StringVar(&orderBy, "order-by", "", "created_at, updated_at or title")
	command.Flags().BoolVar(&desc, "desc", false, "descending order")
	command.Flags().IntVar(&offset, "offset", 0, "skip this many proposals")
	command.Flags().IntVarP(&limit, "limit", "l", 0, "page size (server default when 0)")

	return command
}

func updateDocCmd() *cobra.Command {
	var docID string
	var expected string
	var sections []string
	var author string

	command := &cobra.Command{
		Use:   "update",
		Short: "commit new sections on top of the expected version",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"doc-id", "expected-version", "section"}) {
				return
			}
			content, err := parseSections(sections)
			if err != nil {
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
			res, err := client.UpdateDocument(ctx, &v1.UpdateDocumentRequest{
				Id:                docID,
				ExpectedVersionId: expected,
				Sections:          content,
				CreatedBy:         author,
			})
			if err != nil {
				printError(err)
				return
			}

			if res.Version.Id == expected {
				color.Yellow("content unchanged")
			}
			printVersions(res.Version)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&expected, "expected-version", "e", "", "version the edit is based on (required)")
	command.Flags().StringArrayVarP(&sections, "section", "s", nil, "section as name=text or name=@file (required)")
	command.Flags().StringVar(&author, "author", "", "author of the version")

	return command
}

func transitionDocCmd() *cobra.Command {
	var docID string
	var expected string
	var state string

	command := &cobra.Command{
		Use:   "transition",
		Short: "move a proposal to another lifecycle state",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, []string{"doc-id", "expected-version", "state"}) {
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
			res, err := client.TransitionDocument(ctx, &v1.TransitionDocumentRequest{
				Id:                docID,
				ExpectedVersionId: expected,
				State:             state,
			})
			if err != nil {
				printError(err)
				return
			}

			printDocuments(res.Document)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&expected, "expected-version", "e", "", "current head version (required)")
	command.Flags().StringVar(&state, "state", "", "generating, reviewing, completed, submitted or draft (required)")

	return command
}

func deleteDocCmd() *cobra.Command {
	var docID string
	var erase bool

	command := &cobra.Command{
		Use:   "delete",
		Short: "soft delete a proposal, or erase it with its history",
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
			res, err := client.DeleteDocument(ctx, &v1.DeleteDocumentRequest{Id: docID, Erase: erase})
			if err != nil {
				printError(err)
				return
			}

			if erase {
				color.Green("document erased")
				return
			}
			printDocuments(res.Document)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().BoolVar(&erase, "erase", false, "purge versions and references")

	return command
}

func listDocVersionsCmd() *cobra.Command {
	var docID string

	command := &cobra.Command{
		Use:   "versions",
		Short: "list the version chain from the head back",
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
			res, err := client.ListVersions(ctx, &v1.ListVersionsRequest{DocumentId: docID})
			if err != nil {
				printError(err)
				return
			}

			printVersions(res.Versions...)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")

	return command
}

func docStatsCmd() *cobra.Command {
	var ownerID string

	command := &cobra.Command{
		Use:   "stats",
		Short: "count the proposals of an owner by state",
		Run: func(cmd *cobra.Command, args []string) {
			if ownerID == "" {
				ownerID = readContext().Owner
			}
			if ownerID == "" {
				color.Red("missing: --owner-id")
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
			res, err := client.DocumentStatistics(ctx, &v1.DocumentStatisticsRequest{OwnerId: ownerID})
			if err != nil {
				printError(err)
				return
			}

			states := make([]string, 0, len(res.ByState))
			for state := range res.ByState {
				states = append(states, state)
			}
			sort.Strings(states)
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"State", "Count"})
			for _, state := range states {
				table.Append([]string{state, strconv.FormatInt(res.ByState[state], 10)})
			}
			table.SetFooter([]string{"Total", strconv.FormatInt(res.Total, 10)})
			table.Render()
		},
	}

	command.Flags().StringVarP(&ownerID, "owner-id", "o", "", "owner id (default from context)")

	return command
}

func duplicateDocCmd() *cobra.Command {
	var docID string
	var title string
	var author string

	command := &cobra.Command{
		Use:   "duplicate",
		Short: "copy the head of a proposal into a new draft",
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
			res, err := client.DuplicateDocument(ctx, &v1.DuplicateDocumentRequest{
				Id:        docID,
				Title:     title,
				CreatedBy: author,
			})
			if err != nil {
				printError(err)
				return
			}

			printDocuments(res.Document)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&title, "title", "t", "", "title of the copy (default: source title with a suffix)")
	command.Flags().StringVar(&author, "author", "", "author of the first version")

	return command
}

func printDocuments(docs ...*v1.Document) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "State", "Seq", "Head Version", "Title", "Updated At", "Submitted At"})
	for _, doc := range docs {
		updated := doc.UpdatedAt
		table.Append([]string{
			doc.Id,
			doc.State,
			strconv.FormatInt(doc.HeadSequence, 10),
			doc.HeadVersionId,
			doc.Title,
			shortTime(&updated),
			shortTime(doc.SubmittedAt),
		})
	}
	table.Render()
}

func printVersions(versions ...*v1.Version) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Version", "Parent", "Fingerprint", "Created By", "Created At"})
	for _, v := range versions {
		created := v.CreatedAt
		fingerprint := v.Fingerprint
		if len(fingerprint) > 12 {
			fingerprint = fingerprint[:12]
		}
		table.Append([]string{
			strconv.FormatInt(v.Sequence, 10),
			v.Id,
			v.ParentVersionId,
			fingerprint,
			v.CreatedBy,
			shortTime(&created),
		})
	}
	table.Render()
}

func printSections(sections map[string]string) {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printField(name, sections[name])
	}
}
