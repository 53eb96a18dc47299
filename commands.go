package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"golang.org/x/sync/errgroup"
)

// maxParallelLookups bounds concurrent status lookups.
const maxParallelLookups = 4

var cmdFlags struct {
	lang      string
	country   string
	postcode  string
	address   string
	query     string
	provider  string
	limit     int
	file      string
	draft     bool
	reference string
	out       string
}

func init() {
	statusCmd.Flags().StringVar(&cmdFlags.lang, "lang", "", "response language (fi, sv, en)")

	findCityCmd.Flags().StringVar(&cmdFlags.country, "country", "FI", "ISO country code")

	pickupPointsCmd.Flags().StringVar(&cmdFlags.postcode, "postcode", "", "postcode to search near")
	pickupPointsCmd.Flags().StringVar(&cmdFlags.address, "address", "", "street address to search near")
	pickupPointsCmd.Flags().StringVar(&cmdFlags.country, "country", "FI", "ISO country code")
	pickupPointsCmd.Flags().StringVar(&cmdFlags.query, "query", "", "free text query, replaces postcode and address")
	pickupPointsCmd.Flags().StringVar(&cmdFlags.provider, "provider", "", "service provider, e.g. Posti")
	pickupPointsCmd.Flags().IntVar(&cmdFlags.limit, "limit", pakettikauppa.DefaultPickupLimit, "maximum number of points (1-15)")

	estimateCmd.Flags().StringVarP(&cmdFlags.file, "file", "f", "-", "shipment JSON file, - for stdin")

	createCmd.Flags().StringVarP(&cmdFlags.file, "file", "f", "-", "shipment JSON file, - for stdin")
	createCmd.Flags().BoolVar(&cmdFlags.draft, "draft", false, "create a draft to confirm later")
	createCmd.Flags().StringVar(&cmdFlags.lang, "lang", "", "response language (fi, sv, en)")

	labelCmd.Flags().StringVar(&cmdFlags.reference, "reference", "", "shipment reference, single tracking code only")
	labelCmd.Flags().StringVarP(&cmdFlags.out, "out", "o", "", "write the decoded PDF to this file")

	rootCmd.AddCommand(
		statusCmd,
		servicesCmd,
		methodsCmd,
		findCityCmd,
		pickupPointsCmd,
		pickupPointCmd,
		activationCodeCmd,
		estimateCmd,
		createCmd,
		confirmCmd,
		labelCmd,
		tokenCmd,
	)
}

// withClient runs fn with a client built from the environment and prints
// its result as JSON.
func withClient(fn func(ctx context.Context, client *pakettikauppa.Client) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := setup(ctx)
		if err != nil {
			return err
		}
		defer env.close(ctx)

		client, err := env.newClient(ctx)
		if err != nil {
			return err
		}

		result, err := fn(ctx, client)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v any) error {
	if raw, ok := v.(json.RawMessage); ok && raw == nil {
		v = nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func readShipment(path string) (*pakettikauppa.Shipment, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading shipment: %w", err)
	}

	var s pakettikauppa.Shipment
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding shipment: %w", err)
	}
	return &s, nil
}

var statusCmd = &cobra.Command{
	Use:   "status TRACKING_CODE...",
	Short: "Show the tracking status of one or more shipments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := setup(ctx)
		if err != nil {
			return err
		}
		defer env.close(ctx)

		var (
			mu      sync.Mutex
			results = make(map[string]json.RawMessage, len(args))
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelLookups)
		for _, code := range args {
			g.Go(func() error {
				client, err := env.newClient(gctx)
				if err != nil {
					return err
				}
				status, err := client.GetShipmentStatus(gctx, code, cmdFlags.lang)
				if err != nil {
					return fmt.Errorf("%s: %w", code, err)
				}
				mu.Lock()
				results[code] = status
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if len(args) == 1 {
			return printJSON(cmd.OutOrStdout(), results[args[0]])
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List additional services",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		return c.ListAdditionalServices(ctx)
	}),
}

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List shipping methods",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		return c.ListShippingMethods(ctx)
	}),
}

var findCityCmd = &cobra.Command{
	Use:   "find-city POSTCODE",
	Short: "Resolve the city of a postcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
			return c.FindCityByPostcode(ctx, args[0], cmdFlags.country)
		})(cmd, args)
	},
}

var pickupPointsCmd = &cobra.Command{
	Use:   "pickup-points",
	Short: "Search pickup points near an address",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		if cmdFlags.query != "" {
			return c.SearchPickupPointsByText(ctx, cmdFlags.query, cmdFlags.provider, cmdFlags.limit)
		}
		return c.SearchPickupPoints(ctx, pakettikauppa.PickupPointQuery{
			Postcode:        cmdFlags.postcode,
			StreetAddress:   cmdFlags.address,
			Country:         cmdFlags.country,
			ServiceProvider: cmdFlags.provider,
			Limit:           cmdFlags.limit,
		})
	}),
}

var pickupPointCmd = &cobra.Command{
	Use:   "pickup-point POINT_ID SERVICE",
	Short: "Show a pickup point; SERVICE is a method code or provider name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
			return c.GetPickupPointInfo(ctx, args[0], args[1])
		})(cmd, args)
	},
}

var activationCodeCmd = &cobra.Command{
	Use:   "activation-code TRACKING_CODE",
	Short: "Create an activation code for a shipment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
			return c.CreateActivationCode(ctx, args[0])
		})(cmd, args)
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the price of a shipment",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		s, err := readShipment(cmdFlags.file)
		if err != nil {
			return nil, err
		}
		estimate, err := c.EstimateShippingCost(ctx, s)
		if err != nil {
			return nil, err
		}
		return estimate.Raw, nil
	}),
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a shipment, or a draft with --draft",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		s, err := readShipment(cmdFlags.file)
		if err != nil {
			return nil, err
		}
		if cmdFlags.draft {
			return c.CreateShipmentDraft(ctx, s)
		}
		return c.CreateShipment(ctx, s, cmdFlags.lang)
	}),
}

var confirmCmd = &cobra.Command{
	Use:   "confirm DRAFT_UUID",
	Short: "Confirm a shipment draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
			return c.ConfirmShipmentDraft(ctx, args[0])
		})(cmd, args)
	},
}

var labelCmd = &cobra.Command{
	Use:   "label TRACKING_CODE...",
	Short: "Fetch shipping labels as one PDF",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
			var (
				label *pakettikauppa.Label
				err   error
			)
			if len(args) == 1 {
				label, err = c.FetchShippingLabel(ctx, &pakettikauppa.Shipment{
					Reference:    cmdFlags.reference,
					TrackingCode: args[0],
				})
			} else {
				label, err = c.FetchShippingLabels(ctx, args...)
			}
			if err != nil {
				return nil, err
			}

			if cmdFlags.out == "" {
				return label, nil
			}
			pdf, err := base64.StdEncoding.DecodeString(label.FileBase64)
			if err != nil {
				return nil, fmt.Errorf("decoding label: %w", err)
			}
			if err := os.WriteFile(cmdFlags.out, pdf, 0o644); err != nil {
				return nil, fmt.Errorf("writing label: %w", err)
			}
			return map[string]any{"file": cmdFlags.out, "bytes": len(pdf)}, nil
		})(cmd, args)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch an OAuth access token",
	Args:  cobra.NoArgs,
	RunE: withClient(func(ctx context.Context, c *pakettikauppa.Client) (any, error) {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"access_token": token.AccessToken,
			"token_type":   token.TokenType,
			"expires_at":   token.ExpiresAt(),
		}, nil
	}),
}
