package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/checkai/checkai/internal/claims"
	"github.com/checkai/checkai/internal/model"
)

// maxContextChars bounds how much document text is forwarded to the model
// as context
const maxContextChars = 6000

var (
	outJSON      string
	checkTimeout time.Duration
	workers      int
	channelList  []string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Extract claims from a document and verify them against evidence",
	Long: `Check reads a document, extracts checkable claims, gathers evidence
for each claim and produces a labeled verdict per claim.

The input file holds one sentence per line; a blank line starts a new
paragraph. Use "-" to read from stdin.

Example:
  checkai check document.txt
  checkai check document.txt --json report.json --workers 4
  checkai check - --channels web,wikipedia,wikidata < document.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&outJSON, "json", "-", "output JSON path (\"-\" for stdout)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "overall run timeout")
	checkCmd.Flags().IntVar(&workers, "workers", 0, "verification workers (0 = configured default)")
	checkCmd.Flags().StringSliceVar(&channelList, "channels", nil, "evidence channels (web, wikipedia, wikidata)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Concurrency.VerifyWorkers = workers
	}
	if len(channelList) > 0 {
		cfg.Search.Channels = channelList
	}

	sentences, docContext, err := readDocument(args[0])
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	logger := newLogger()
	p := buildPipeline(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	// First interrupt stops cooperatively; a second one aborts
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "stop requested, finishing in-flight claims")
			p.Stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	result := p.Run(ctx, sentences, docContext)

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d sentences, %d claims, %d verified, %d skipped (%v)\n",
			result.Stats.Sentences, result.Stats.ClaimsExtracted,
			result.Stats.ClaimsVerified, result.Stats.ClaimsSkipped,
			result.Stats.Elapsed.Round(time.Millisecond))
	}

	return writeResult(result, outJSON)
}

// readDocument parses the sentence file: one sentence per line, blank line
// starts a new paragraph. The truncated raw text doubles as model context.
func readDocument(path string) ([]claims.Sentence, string, error) {
	var reader *bufio.Scanner
	if path == "-" {
		reader = bufio.NewScanner(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = f.Close() }()
		reader = bufio.NewScanner(f)
	}
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sentences []claims.Sentence
	var rawLines []string
	paragraph, sentenceIdx := 0, 0
	sawSentence := false

	for reader.Scan() {
		line := strings.TrimSpace(reader.Text())
		rawLines = append(rawLines, line)
		if line == "" {
			if sawSentence {
				paragraph++
				sentenceIdx = 0
				sawSentence = false
			}
			continue
		}
		sentences = append(sentences, claims.Sentence{
			Text: line,
			Span: model.SourceSpan{ParagraphIndex: paragraph, SentenceIndex: sentenceIdx},
		})
		sentenceIdx++
		sawSentence = true
	}
	if err := reader.Err(); err != nil {
		return nil, "", err
	}

	docContext := strings.Join(rawLines, "\n")
	if runes := []rune(docContext); len(runes) > maxContextChars {
		docContext = string(runes[:maxContextChars])
	}
	return sentences, docContext, nil
}

// writeResult renders the run result as indented JSON
func writeResult(result any, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", path)
	return nil
}
