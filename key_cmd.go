package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/vortaro/internal/asset"
)

var (
	keyPhrase int

	keyCmd = &cobra.Command{
		Use:   "key WORD...",
		Short: "Print the audio key of words",
		Long: paragraph(fmt.Sprintf("\nPrint the %s of each word, the file name (without extension) its audio is looked up under.",
			keyword("audio key"))),
		Example: paragraph("vortaro key ĉevalo ŝipo\nvortaro key --phrase 7 mi lernas Esperanton"),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if keyPhrase > 0 {
				fmt.Println(asset.PhraseKey(keyPhrase, strings.Join(args, " ")))
				return nil
			}
			for _, word := range args {
				fmt.Println(asset.KeyFor(word))
			}
			return nil
		},
	}
)

func init() {
	keyCmd.Flags().IntVar(&keyPhrase, "phrase", 0, "treat the words as example sentence number N")
}
