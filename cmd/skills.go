package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-screener/internal/resume"
	"github.com/spigell/resume-screener/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills <file>",
	Short: "Print the known skills found in a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		vocabulary := skills.Default()
		if path := strings.TrimSpace(viper.GetString("skills.vocabulary-file")); path != "" {
			v, err := skills.LoadFile(path)
			if err != nil {
				log.Fatalf("loading vocabulary: %v", err)
			}
			vocabulary = v
		}

		body, err := resume.ReadFile(args[0])
		if err != nil {
			log.Fatalf("reading document: %v", err)
		}

		found := skills.NewExtractor(vocabulary).Extract(body)
		for _, name := range vocabulary.DisplayAll(found.Keys()) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}
