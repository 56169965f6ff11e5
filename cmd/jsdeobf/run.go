package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	deobf "github.com/jsdeobf/jsdeobf"
	"github.com/jsdeobf/jsdeobf/decoder"
)

func newRunCmd() *cobra.Command {
	var (
		decoders           []string
		callCountThreshold int
		arraySizeThreshold int
		iterationCap       int
		markKeywords       []string
		markKeywordsFile   string
		noSandbox          bool
		timeout            time.Duration
		output             string
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run the pipeline once over a file, or stdin if omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, src, err := readSource(args)
			if err != nil {
				return err
			}

			keywords := markKeywords
			if markKeywordsFile != "" {
				fromFile, err := loadKeywordsFile(markKeywordsFile)
				if err != nil {
					return err
				}
				keywords = append(keywords, fromFile...)
			}

			opts := deobf.DefaultOptions()
			opts.Decoders = decoders
			opts.MarkKeywords = keywords
			if callCountThreshold > 0 {
				opts.CallCountThreshold = callCountThreshold
			}
			if arraySizeThreshold > 0 {
				opts.ArraySizeThreshold = arraySizeThreshold
			}
			if iterationCap > 0 {
				opts.IterationCap = iterationCap
			}
			if noSandbox {
				opts.Sandbox = nil
			} else {
				opts.Sandbox = decoder.NewOttoSandbox(timeout)
			}

			result, err := deobf.Deobfuscate(name, src, opts)
			if err != nil {
				return err
			}
			return writeOutput(output, result.Code)
		},
	}

	cmd.Flags().StringSliceVar(&decoders, "decoders", nil, "decoder function names already known by the caller")
	cmd.Flags().IntVar(&callCountThreshold, "call-count-threshold", 0, "override the call-count decoder-locator threshold (0 = default)")
	cmd.Flags().IntVar(&arraySizeThreshold, "array-size-threshold", 0, "override the big-array decoder-locator threshold (0 = default)")
	cmd.Flags().IntVar(&iterationCap, "iteration-cap", 0, "override the rewrite library's fixed-point iteration cap (0 = default)")
	cmd.Flags().StringSliceVar(&markKeywords, "mark-keywords", nil, "keywords that trigger a TOLOOK comment when spotted in an identifier, string, or call")
	cmd.Flags().StringVar(&markKeywordsFile, "mark-keywords-file", "", "file of newline-separated keywords to add to --mark-keywords")
	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "skip locating and evaluating decoder calls")
	cmd.Flags().DurationVar(&timeout, "timeout", decoder.DefaultTimeout, "sandbox evaluation timeout")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func readSource(args []string) (name, src string, err error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", err
		}
		return "stdin", string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return args[0], string(b), nil
}

func writeOutput(path, code string) error {
	if path == "" {
		_, err := fmt.Println(code)
		return err
	}
	return os.WriteFile(path, []byte(code), 0o644)
}
