package main

import (
	"fmt"

	"github.com/sardine-ai/go-experiment-kit/device"
	"github.com/spf13/cobra"
)

func newDeviceCommand() *cobra.Command {
	var (
		useGPU bool
		index  int
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Print the device a run would train on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if list {
				for _, d := range device.Default().Devices(ctx) {
					fmt.Fprintf(out, "%s\t%s\t%d MiB\n", d, d.Name, d.MemoryMiB)
				}
				return nil
			}

			d, err := device.Get(ctx, useGPU, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useGPU, "gpu", true, "prefer an accelerator when one is present")
	cmd.Flags().IntVar(&index, "index", 0, "accelerator index")
	cmd.Flags().BoolVar(&list, "list", false, "list the visible accelerators")
	return cmd
}
