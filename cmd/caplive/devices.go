package main

import (
	"fmt"

	"caplive/internal/adb"
	"caplive/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached Android devices",
	Long: `Lists the devices the device bridge reports as ready and marks the one
a session would target.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	logger := telemetry.NewLogger(viper.GetBool("verbose"), viper.GetString("log_file"), false)
	client := adb.NewClient(logger)

	if !client.Available() {
		return fmt.Errorf("adb not found in PATH")
	}

	devices, err := client.Devices(cmd.Context())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No ready Android devices found.")
		return nil
	}

	target, _ := adb.ChooseTarget(devices)
	for _, d := range devices {
		kind := "device"
		if d.IsEmulator {
			kind = "emulator"
		}
		marker := " "
		if d.Serial == target.Serial {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, d.Serial, kind)
	}
	return nil
}
