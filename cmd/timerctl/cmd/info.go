package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show platform timing characteristics",
	Long: `Info reports the facts that bound what the timing guards can promise on
this host: CPU and OS details, and the measured sleep granularity. The
granularity is the shortest wait the platform actually delivers, which is
the floor for both deadline precision and minimum-duration precision.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

type platformInfo struct {
	OS               string  `json:"os" yaml:"os"`
	Architecture     string  `json:"architecture" yaml:"architecture"`
	CPUModel         string  `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads       int     `json:"cpu_threads" yaml:"cpu_threads"`
	HostUptime       string  `json:"host_uptime" yaml:"host_uptime"`
	SleepGranularity float64 `json:"sleep_granularity_seconds" yaml:"sleep_granularity_seconds"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	info := platformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUThreads:   runtime.NumCPU(),
		CPUModel:     "Unknown",
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if uptime, err := host.Uptime(); err == nil {
		info.HostUptime = (time.Duration(uptime) * time.Second).String()
	}
	info.SleepGranularity = measureSleepGranularity().Seconds()

	if isTableOutput() {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("OS", info.OS)
		table.Append("Architecture", info.Architecture)
		table.Append("CPU Model", info.CPUModel)
		table.Append("CPU Threads", fmt.Sprintf("%d", info.CPUThreads))
		table.Append("Host Uptime", info.HostUptime)
		table.Append("Sleep Granularity", fmt.Sprintf("%.6fs", info.SleepGranularity))
		table.Render()
		return nil
	}
	return printStructured(info)
}

// measureSleepGranularity samples the shortest sleep the platform delivers.
// The minimum over several one-nanosecond sleeps approximates the scheduler
// tick that bounds guard precision.
func measureSleepGranularity() time.Duration {
	const samples = 10

	min := time.Duration(0)
	for i := 0; i < samples; i++ {
		start := time.Now()
		time.Sleep(time.Nanosecond)
		elapsed := time.Since(start)
		if min == 0 || elapsed < min {
			min = elapsed
		}
	}
	return min
}
