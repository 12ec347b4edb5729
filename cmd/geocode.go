package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shenikar/road_clearing_system/internal/geocoding"
	"github.com/shenikar/road_clearing_system/internal/resolver"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Query Nominatim the same way request submission does",
}

var geocodeForwardCmd = &cobra.Command{
	Use:   "forward <street> [barangay]",
	Short: "Look up coordinates for a street and barangay in the configured municipality",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		barangay := ""
		if len(args) == 2 {
			barangay = args[1]
		}

		client := geocoding.NewNominatimClient(cfg)
		query := resolver.NewAddressResolver(client, log, cfg).Query(strings.TrimSpace(args[0]), strings.TrimSpace(barangay))

		coords, err := client.Forward(context.Background(), query)
		if err != nil {
			return fmt.Errorf("forward geocoding %q failed (%s): %w", query, geocoding.KindOf(err), err)
		}
		return printJSON(cmd, map[string]any{"query": query, "lat": coords.Latitude, "lon": coords.Longitude})
	},
}

var geocodeReverseCmd = &cobra.Command{
	Use:   "reverse <lat> <lon>",
	Short: "Look up street and barangay for a coordinate pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}

		cfg, _, err := loadRuntime()
		if err != nil {
			return err
		}

		addr, err := geocoding.NewNominatimClient(cfg).Reverse(context.Background(), lat, lon)
		if err != nil {
			return fmt.Errorf("reverse geocoding failed (%s): %w", geocoding.KindOf(err), err)
		}
		return printJSON(cmd, map[string]any{"street": addr.Street, "barangay": addr.Barangay})
	},
}

func init() {
	geocodeCmd.AddCommand(geocodeForwardCmd, geocodeReverseCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
