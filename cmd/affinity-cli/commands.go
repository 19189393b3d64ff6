package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/affinity/internal/adapters/sources/fixture"
	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/profile"
	"github.com/okian/affinity/internal/domain/ranking"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/pkg/logger"
)

const defaultServerURL = "http://localhost:9080"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "affinity-cli",
		Short:        "Trait-based affinity ranking",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				return logger.SetLevelString("debug")
			}
			return nil
		},
	}
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentFlags().Float64("tag-weight", scoring.DefaultTagWeight, "score per matched tag occurrence")
	root.PersistentFlags().Float64("salience-bonus", scoring.DefaultSalienceBonus, "bonus per matched top tag")

	root.AddCommand(rankCmd(), profileCmd(), recommendCmd(), loadtestCmd())
	return root
}

// --- rank ---

type rankOutput struct {
	TasteProfile    tasteProfile            `json:"taste_profile"`
	Recommendations []model.ScoredCandidate `json:"recommendations"`
}

type tasteProfile struct {
	TotalAssets int              `json:"total_assets"`
	TopTags     []model.TagCount `json:"top_tags"`
}

func rankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a candidate file against an owned-asset file",
		Long: `Rank a candidate file against an owned-asset file.

Both files are YAML or JSON with an "assets" list; the candidate file may
use "candidates" instead.

Examples:
  affinity-cli rank --owned owned.yaml --candidates pool.yaml
  affinity-cli rank --owned owned.json --candidates pool.json --top-n 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownedPath, _ := cmd.Flags().GetString("owned")
			candidatesPath, _ := cmd.Flags().GetString("candidates")
			topN, _ := cmd.Flags().GetInt("top-n")
			topK, _ := cmd.Flags().GetInt("top-k")

			owned, err := fixture.LoadAssets(ownedPath)
			if err != nil {
				return err
			}
			candidates, err := fixture.LoadAssets(candidatesPath)
			if err != nil {
				return err
			}

			eng, err := newEngine(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Recommend("cli", owned, candidates, topK, topN)
			if err != nil {
				return fmt.Errorf("%s: %w", ownedPath, err)
			}
			logger.Get().Debug(cmd.Context(), "ranked candidates",
				logger.Int("owned", len(owned)),
				logger.Int("candidates", len(candidates)),
				logger.Int("returned", len(res.Recommendations)))

			return printJSON(cmd.OutOrStdout(), rankOutput{
				TasteProfile: tasteProfile{
					TotalAssets: res.Profile.TotalAssets,
					TopTags:     res.Profile.TopTags,
				},
				Recommendations: res.Recommendations,
			})
		},
	}
	cmd.Flags().String("owned", "", "file with the owned assets")
	cmd.Flags().String("candidates", "", "file with the candidate pool")
	cmd.Flags().Int("top-n", ranking.DefaultTopN, "number of recommendations")
	cmd.Flags().Int("top-k", profile.DefaultTopK, "size of the profile's top tag list")
	_ = cmd.MarkFlagRequired("owned")
	_ = cmd.MarkFlagRequired("candidates")
	return cmd
}

// --- profile ---

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Build a taste profile from an owned-asset file",
		Long: `Build a taste profile from an owned-asset file.

Examples:
  affinity-cli profile --owned owned.yaml --top-k 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownedPath, _ := cmd.Flags().GetString("owned")
			topK, _ := cmd.Flags().GetInt("top-k")
			holder, _ := cmd.Flags().GetString("wallet")

			owned, err := fixture.LoadAssets(ownedPath)
			if err != nil {
				return err
			}
			eng, err := newEngine(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), eng.BuildProfile(holder, owned, topK))
		},
	}
	cmd.Flags().String("owned", "", "file with the owned assets")
	cmd.Flags().Int("top-k", profile.DefaultTopK, "size of the top tag list")
	cmd.Flags().String("wallet", "", "holder id recorded in the profile")
	_ = cmd.MarkFlagRequired("owned")
	return cmd
}

// --- recommend ---

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Ask a running server for recommendations",
		Long: `Ask a running server for recommendations.

Examples:
  affinity-cli recommend --wallet 0xabc
  affinity-cli recommend --url http://localhost:9080 --wallet 0xabc --top-n 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, _ := cmd.Flags().GetString("url")
			wallet, _ := cmd.Flags().GetString("wallet")
			topN, _ := cmd.Flags().GetInt("top-n")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			client := newAPIClient(url, timeout)
			body, err := client.recommend(cmd.Context(), wallet, topN)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().String("url", defaultServerURL, "affinity server base URL")
	cmd.Flags().String("wallet", "", "wallet address")
	cmd.Flags().Int("top-n", 0, "number of recommendations, 0 uses the server default")
	cmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	tagWeight, _ := cmd.Flags().GetFloat64("tag-weight")
	bonus, _ := cmd.Flags().GetFloat64("salience-bonus")
	if tagWeight < 0 || bonus < 0 {
		return nil, fmt.Errorf("weights must not be negative")
	}
	return engine.New(engine.WithWeights(scoring.Weights{TagWeight: tagWeight, SalienceBonus: bonus})), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
