package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carwash-app/carwash/internal/httpclient"
)

type recommendBody struct {
	UserID       string `json:"user_id"`
	Days         int    `json:"days"`
	ForceRefresh bool   `json:"force_refresh"`
}

func newRecommendCmd() *cobra.Command {
	var (
		advisorURL, userID, bearer string
		days                       int
		force                      bool
		timeout                    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Ask the advisor for the best wash day",
		Long:  `Posts a recommendation request and prints the JSON answer. Pass --token when going through the gateway.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := httpclient.New(advisorURL, timeout)
			if bearer != "" {
				c = c.WithHeader("Authorization", "Bearer "+bearer)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var out json.RawMessage
			body := recommendBody{UserID: userID, Days: days, ForceRefresh: force}
			if err := c.PostJSON(ctx, "/api/recommendations", body, &out); err != nil {
				return err
			}

			pretty, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
			return nil
		},
	}
	cmd.Flags().StringVar(&advisorURL, "advisor-url", "http://localhost:8003", "advisor or gateway base URL")
	cmd.Flags().StringVar(&userID, "user-id", "", "user to recommend for")
	cmd.Flags().StringVar(&bearer, "token", "", "access token for the gateway")
	cmd.Flags().IntVar(&days, "days", 7, "forecast days to consider (1-14)")
	cmd.Flags().BoolVar(&force, "force", false, "skip the cached recommendation")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
