package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sst/templateassist/internal/assist"
	"github.com/sst/templateassist/internal/format"
	"github.com/sst/templateassist/internal/textscan"
	"github.com/sst/templateassist/pkg/app"
)

func newProposeCmd() *cobra.Command {
	proposeCmd := &cobra.Command{
		Use:   "propose",
		Short: "List or apply the templates offered at an offset",
		Long: `propose computes the template proposals for a buffer position.
The buffer is read from --file, or from stdin when it is piped. Without --accept
the matching templates are listed; with --accept the chosen one is materialized.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			file, _ := cmd.Flags().GetString("file")
			offset, _ := cmd.Flags().GetInt("offset")
			selection, _ := cmd.Flags().GetString("selection")
			accept, _ := cmd.Flags().GetInt("accept")
			build, _ := cmd.Flags().GetBool("build")
			rank, _ := cmd.Flags().GetBool("rank")
			vars, _ := cmd.Flags().GetStringToString("var")

			text, err := readBuffer(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if offset < 0 {
				offset = len(text)
			}

			path := file
			if path == "-" {
				path = ""
			}
			req := app.ProposalRequest{
				Scope:     scope,
				Document:  app.Document{Path: path, Text: text},
				Offset:    offset,
				Variables: vars,
				Rank:      rank,
			}
			if cmd.Flags().Changed("prefix") {
				req.Prefix, _ = cmd.Flags().GetString("prefix")
			} else {
				req.Prefix = textscan.WordBefore(text, offset)
			}
			if selection != "" {
				sel, err := parseSelection(selection)
				if err != nil {
					return err
				}
				req.Document.Selection = &sel
			}

			builders, err := application.Propose(cmd.Context(), req)
			if err != nil {
				return err
			}

			if accept >= 0 {
				p, err := app.Accept(builders, accept)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), []format.Record{proposalRecord(p)})
			}

			candidates := app.Candidates(builders, build)
			records := make([]format.Record, len(candidates))
			for i, c := range candidates {
				records[i] = format.Record{
					{Key: "index", Value: c.Index},
					{Key: "trigger", Value: c.Trigger},
					{Key: "description", Value: c.Description},
				}
				if c.Proposal != nil {
					records[i] = append(records[i], proposalRecord(*c.Proposal)[1:]...)
				}
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}

	proposeCmd.Flags().StringP("scope", "s", "", "Template scope, usually the language id")
	proposeCmd.Flags().String("file", "", "File holding the buffer, - for stdin")
	proposeCmd.Flags().IntP("offset", "o", -1, "Invocation offset in bytes, end of buffer when negative")
	proposeCmd.Flags().StringP("prefix", "p", "", "Typed prefix, the word before the offset when unset")
	proposeCmd.Flags().String("selection", "", "Selected range as start:end")
	proposeCmd.Flags().IntP("accept", "a", -1, "Materialize the proposal at this index")
	proposeCmd.Flags().Bool("build", false, "Materialize every listed proposal")
	proposeCmd.Flags().Bool("rank", false, "Order proposals by fuzzy distance to the prefix")
	proposeCmd.Flags().StringToString("var", nil, "Extra template variables as name=value")

	proposeCmd.MarkFlagRequired("scope")
	proposeCmd.MarkFlagsMutuallyExclusive("accept", "build")
	return proposeCmd
}

func proposalRecord(p assist.Proposal) format.Record {
	return format.Record{
		{Key: "description", Value: p.Description},
		{Key: "proposal", Value: p.Proposal},
		{Key: "escape", Value: p.EscapePosition},
		{Key: "positions", Value: p.Positions},
		{Key: "overwrite", Value: p.Overwrite},
	}
}

// readBuffer reads the named file, or stdin when no file is named and data
// is piped in.
func readBuffer(stdin io.Reader, file string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read buffer: %w", err)
		}
		return string(data), nil
	}
	if f, ok := stdin.(*os.File); ok && file == "" {
		if data, piped := checkStdinPipe(f); piped {
			return data, nil
		}
		return "", fmt.Errorf("no buffer: pass --file or pipe text to stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// checkStdinPipe reads f when it is a pipe or a redirected file rather than
// a terminal.
func checkStdinPipe(f *os.File) (string, bool) {
	stat, err := f.Stat()
	if err != nil {
		return "", false
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return "", false
	}
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// parseSelection parses "start:end".
func parseSelection(s string) (assist.Selection, error) {
	startStr, endStr, ok := strings.Cut(s, ":")
	if !ok {
		return assist.Selection{}, fmt.Errorf("invalid selection %q: want start:end", s)
	}
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return assist.Selection{}, fmt.Errorf("invalid selection start %q: %w", startStr, err)
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return assist.Selection{}, fmt.Errorf("invalid selection end %q: %w", endStr, err)
	}
	return assist.Selection{Start: start, End: end}, nil
}
