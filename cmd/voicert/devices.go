package main

import (
	"github.com/codewandler/voicert-go/audio"
	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input and output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}
			defer backend.Close()

			inputs, err := backend.InputDevices()
			if err != nil {
				return err
			}
			outputs, err := backend.OutputDevices()
			if err != nil {
				return err
			}
			a.listDevices("input", inputs)
			a.listDevices("output", outputs)
			return nil
		},
	}
}

func (a *app) listDevices(kind string, devices []audio.DeviceInfo) {
	if len(devices) == 0 {
		a.printf("no %s devices\n", kind)
		return
	}
	a.printf("%s devices:\n", kind)
	for i, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		a.printf("%s [%d] %s\n", marker, i, d.Name)
	}
}
