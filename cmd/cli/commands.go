package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/pensionledger/internal/adapter/http/dto"
)

func userPath(userID string, suffix string) (string, error) {
	if err := uuid.Validate(userID); err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	return "/api/v1/users/" + userID + suffix, nil
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return q
}

func dateQuery(name, value string) (url.Values, error) {
	q := url.Values{}
	at, err := parseTimeFlag(name, value)
	if err != nil {
		return nil, err
	}
	if at != nil {
		q.Set("referenceDate", value)
	}
	return q, nil
}

func usersCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User operations",
	}

	var req dto.CreateUserRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, "/api/v1/users", requestOptions{body: req})
		},
	}
	createCmd.Flags().StringVar(&req.FullName, "name", "", "Full name")
	createCmd.Flags().StringVar(&req.Document, "document", "", "Identity document")
	createCmd.Flags().StringVar(&req.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("document")
	_ = createCmd.MarkFlagRequired("birth-date")

	getCmd := &cobra.Command{
		Use:   "get <userId>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "")
			if err != nil {
				return err
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, requestOptions{})
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/v1/users", requestOptions{query: pageQuery(limit, offset)})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(createCmd, getCmd, listCmd)
	return cmd
}

func balanceCmd(client *apiClient) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "balance <userId>",
		Short: "Show total and available balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/balance")
			if err != nil {
				return err
			}
			q, err := dateQuery("at", at)
			if err != nil {
				return err
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, requestOptions{query: q})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reference date (RFC3339 or YYYY-MM-DD)")

	return cmd
}

func recalculateCmd(client *apiClient) *cobra.Command {
	var req dto.RecalculateRequest

	cmd := &cobra.Command{
		Use:   "recalculate <userId>",
		Short: "Refresh the user's balance projection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/balance/recalculate")
			if err != nil {
				return err
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, path, requestOptions{body: req})
		},
	}
	cmd.Flags().BoolVar(&req.Async, "async", false, "Queue the refresh instead of waiting for it")

	return cmd
}

func withdrawCmd(client *apiClient) *cobra.Command {
	var (
		req            dto.CreateWithdrawalRequest
		amount         string
		requestedAt    string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "withdraw <userId>",
		Short: "Request a TOTAL or PARTIAL withdrawal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/withdrawals")
			if err != nil {
				return err
			}

			req.Type = strings.ToUpper(req.Type)
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount %q: %w", amount, err)
				}
				req.RequestedAmount = &d
			}
			if req.RequestedAt, err = parseTimeFlag("requested-at", requestedAt); err != nil {
				return err
			}

			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, path, requestOptions{
				body:           req,
				idempotencyKey: idempotencyKey,
			})
		},
	}
	cmd.Flags().StringVar(&req.Type, "type", "PARTIAL", "Withdrawal type (TOTAL or PARTIAL)")
	cmd.Flags().StringVar(&amount, "amount", "", "Requested amount (PARTIAL only)")
	cmd.Flags().StringVar(&requestedAt, "requested-at", "", "Request instant (defaults to now on the server)")
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "Client request id")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header value")

	return cmd
}

func withdrawalsCmd(client *apiClient) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "withdrawals <userId>",
		Short: "List processed withdrawals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/withdrawals")
			if err != nil {
				return err
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, requestOptions{query: pageQuery(limit, offset)})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func contributeCmd(client *apiClient) *cobra.Command {
	var (
		amount        string
		contributedAt string
		carencyDate   string
		vestings      []string
	)

	cmd := &cobra.Command{
		Use:   "contribute <userId>",
		Short: "Record a contribution",
		Long: `Record a contribution. Either --carency-date or one or more
--vesting DATE=AMOUNT entries may be given; without either the
contribution is available immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/contributions")
			if err != nil {
				return err
			}

			var req dto.RecordContributionRequest
			if req.Amount, err = decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			if req.ContributedAt, err = parseTimeFlag("contributed-at", contributedAt); err != nil {
				return err
			}
			if req.CarencyDate, err = parseTimeFlag("carency-date", carencyDate); err != nil {
				return err
			}
			for _, raw := range vestings {
				v, err := parseVesting(raw)
				if err != nil {
					return err
				}
				req.Vestings = append(req.Vestings, v)
			}

			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, path, requestOptions{body: req})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Contribution amount")
	cmd.Flags().StringVar(&contributedAt, "contributed-at", "", "Contribution instant (defaults to now on the server)")
	cmd.Flags().StringVar(&carencyDate, "carency-date", "", "Date the whole contribution matures")
	cmd.Flags().StringArrayVar(&vestings, "vesting", nil, "Vesting entry as DATE=AMOUNT (repeatable)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func parseVesting(raw string) (dto.VestingRequest, error) {
	date, amount, ok := strings.Cut(raw, "=")
	if !ok {
		return dto.VestingRequest{}, fmt.Errorf("invalid --vesting %q: expected DATE=AMOUNT", raw)
	}

	releaseAt, err := parseTimeFlag("vesting", date)
	if err != nil {
		return dto.VestingRequest{}, err
	}
	if releaseAt == nil {
		return dto.VestingRequest{}, fmt.Errorf("invalid --vesting %q: missing date", raw)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return dto.VestingRequest{}, fmt.Errorf("invalid --vesting %q: %w", raw, err)
	}

	return dto.VestingRequest{ReleaseAt: *releaseAt, Amount: d}, nil
}

func contributionsCmd(client *apiClient) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "contributions <userId>",
		Short: "List contributions with their availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(args[0], "/contributions")
			if err != nil {
				return err
			}
			q, err := dateQuery("at", at)
			if err != nil {
				return err
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, requestOptions{query: q})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reference date (RFC3339 or YYYY-MM-DD)")

	return cmd
}

func reconcileCmd(client *apiClient) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile [userId]",
		Short: "Compare stored projections with recomputed balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/reconciliation"
			if len(args) == 1 {
				var err error
				if path, err = userPath(args[0], "/reconciliation"); err != nil {
					return err
				}
			}

			q := url.Values{}
			if repair {
				q.Set("repair", "true")
			}
			return client.do(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, path, requestOptions{query: q})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Refresh drifted or missing projections")

	return cmd
}
