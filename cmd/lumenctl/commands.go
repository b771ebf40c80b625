package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lumenlab/lumen/internal/config"
	"github.com/lumenlab/lumen/internal/device"
	"github.com/lumenlab/lumen/internal/discovery"
	"github.com/lumenlab/lumen/internal/protocol"
	"github.com/lumenlab/lumen/internal/registry"
)

// Command flags
var (
	discoverWindow int
	discoverCount  int
	groupOverride  string
	localOverride  string
	effectFlag     string
	durationFlag   int
)

func init() {
	rootCmd.PersistentFlags().IntVar(&discoverWindow, "timeout", 0, "Discovery window in seconds (0 = config default)")
	rootCmd.PersistentFlags().IntVar(&discoverCount, "count", 0, "Stop discovery after this many lights (0 = use the window)")
	rootCmd.PersistentFlags().StringVar(&groupOverride, "group", "", "Multicast group address override")
	rootCmd.PersistentFlags().StringVar(&localOverride, "local", "", "Local IP to advertise for music mode")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(flowCmd)
	rootCmd.AddCommand(musicCmd)
	rootCmd.AddCommand(aliasCmd)
}

// Output styles, applied only when stdout is a terminal.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func styled(style lipgloss.Style, s string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return style.Render(s)
}

// preferences returns the loaded tool preferences, falling back to the
// defaults when the config file is unreadable.
func preferences() *config.Preferences {
	settings, err := config.Load()
	if err != nil {
		return config.NewSettings().Preferences
	}
	return settings.Preferences
}

// searchPolicy derives the stop policy from flags and preferences. Flags
// win over the config file.
func searchPolicy() discovery.Policy {
	prefs := preferences()
	if discoverCount > 0 {
		return discovery.CollectExactly(discoverCount)
	}
	if discoverCount == 0 && discoverWindow == 0 && prefs.DiscoverCount > 0 {
		return discovery.CollectExactly(prefs.DiscoverCount)
	}
	window := discoverWindow
	if window <= 0 {
		window = prefs.DiscoverWindow
	}
	return discovery.CollectForDuration(time.Duration(window) * time.Second)
}

// newEngine builds the discovery engine from flags and preferences.
func newEngine() *discovery.Engine {
	prefs := preferences()
	engine := discovery.NewEngine()
	if groupOverride != "" {
		engine.Group = groupOverride
	} else if prefs.MulticastGroup != "" {
		engine.Group = prefs.MulticastGroup
	}
	if resolver := localResolver(); resolver != nil {
		engine.Resolver = resolver
	}
	return engine
}

// localResolver returns a static resolver when the local IP is pinned by
// flag or preference, nil otherwise.
func localResolver() discovery.AddressResolver {
	prefs := preferences()
	pinned := localOverride
	if pinned == "" {
		pinned = prefs.LocalAddress
	}
	if pinned == "" {
		return nil
	}
	ip := net.ParseIP(pinned)
	if ip == nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring invalid local address %q\n", pinned)
		return nil
	}
	return discovery.StaticResolver{IP: ip}
}

// discoverAll runs one discovery pass and returns the populated registry.
// The caller owns the registry and must Close it.
func discoverAll() (*registry.Registry, error) {
	reg := registry.New(newEngine())
	n, err := reg.Discover(searchPolicy())
	if err != nil {
		reg.Close()
		return nil, err
	}
	if n == 0 {
		reg.Close()
		return nil, fmt.Errorf("no lights found; try a longer --timeout")
	}
	return reg, nil
}

// resolveTarget discovers and resolves one light by alias or id.
func resolveTarget(nameOrID string) (*registry.Registry, *device.Device, error) {
	reg, err := discoverAll()
	if err != nil {
		return nil, nil, err
	}
	dev, err := reg.Resolve(nameOrID)
	if err != nil {
		available := make([]string, 0)
		for _, d := range reg.Devices() {
			available = append(available, d.ID())
		}
		reg.Close()
		return nil, nil, fmt.Errorf("%w (known lights: %s)", err, strings.Join(available, ", "))
	}
	return reg, dev, nil
}

// settle leaves the session up briefly so the device's reply lands in the
// debug logs before the connection is torn down.
func settle() {
	time.Sleep(200 * time.Millisecond)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover lights on the network",
	Long: `Discover Yeelight-compatible lights via UDP multicast.

Sends a search datagram to the multicast group and collects advertisement
replies until the stop policy is satisfied: a fixed collection window by
default, or a device quota with --count.`,
	Example: `  # Collect replies for the configured window
  lumenctl discover

  # Quick pass, stop after the first light answers
  lumenctl discover --count 1

  # Longer window for large networks
  lumenctl discover --timeout 10`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Searching for lights (%s)...\n\n", searchPolicy())

	reg, err := discoverAll()
	if err != nil {
		return err
	}
	defer reg.Close()

	printDevices(reg)
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List lights with their current state",
	Long: `Discover lights and print a detailed state listing.

Includes each light's power, brightness, active color mode, and the
methods it advertises support for.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := discoverAll()
	if err != nil {
		return err
	}
	defer reg.Close()

	for _, dev := range reg.Devices() {
		info := dev.Info()
		state := dev.State()

		title := info.ID
		if alias, ok := reg.AliasFor(info.ID); ok {
			title = fmt.Sprintf("%s (%s)", alias, info.ID)
		}
		fmt.Println(styled(headerStyle, title))
		if info.Name != "" {
			fmt.Printf("  Name:    %s\n", info.Name)
		}
		fmt.Printf("  Address: %s\n", dev.Addr())
		fmt.Printf("  Model:   %s\n", info.Model)
		fmt.Printf("  Power:   %s\n", formatPower(state.Power))
		fmt.Printf("  Bright:  %d%%\n", state.Bright)
		fmt.Printf("  Mode:    %s (%s)\n", state.ColorMode, formatColor(state))
		if state.Flowing {
			fmt.Printf("  Flow:    active\n")
		}
		if state.MusicOn {
			fmt.Printf("  Music:   active\n")
		}
		fmt.Printf("  %s\n", styled(faintStyle, "Supports: "+strings.Join(info.Support, " ")))
		fmt.Println()
	}
	return nil
}

func printDevices(reg *registry.Registry) {
	devs := reg.Devices()
	fmt.Printf("Found %d light(s):\n\n", len(devs))
	for i, dev := range devs {
		info := dev.Info()
		state := dev.State()
		fmt.Printf("%d. %s\n", i+1, styled(headerStyle, info.ID))
		fmt.Printf("   Address: %s\n", dev.Addr())
		fmt.Printf("   Model:   %s\n", info.Model)
		fmt.Printf("   State:   %s, %d%%\n", formatPower(state.Power), state.Bright)
		fmt.Println()
	}
	fmt.Println("Use 'lumenctl set <id> power on' to control a light")
	fmt.Println("Use 'lumenctl alias' to assign names interactively")
}

func formatPower(on bool) string {
	if on {
		return styled(okStyle, "on")
	}
	return "off"
}

func formatColor(state device.State) string {
	switch state.ColorMode {
	case device.ColorModeColorTemp:
		return fmt.Sprintf("%dK", state.ColorTemp)
	case device.ColorModeHSV:
		return fmt.Sprintf("hue %d, sat %d", state.Hue, state.Sat)
	default:
		return fmt.Sprintf("#%06X", state.RGB)
	}
}

var setCmd = &cobra.Command{
	Use:   "set <light> <property> [value...]",
	Short: "Set a light property",
	Long: `Set one property on a light, addressed by alias or id.

Properties:
  power on|off        switch the light
  toggle              flip the power state
  bright <1-100>      brightness percent
  rgb <hex|decimal>   color, e.g. ff0000 or 16711680
  hsv <0-359> <0-100> hue and saturation
  ct <1700-6500>      color temperature in kelvin
  name <text>         device-stored name
  default             save the current state as the power-on default
  delayoff <minutes>  schedule an automatic power-off
  delayoff cancel     remove the scheduled power-off`,
	Example: `  lumenctl set 0x0000000007fb2d1e power on
  lumenctl set desk bright 75 --effect smooth --duration 400
  lumenctl set desk rgb ff8800
  lumenctl set desk ct 2700`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&effectFlag, "effect", "sudden", "Transition effect (sudden, smooth)")
	setCmd.Flags().IntVar(&durationFlag, "duration", 0, "Transition duration in ms (smooth only, >= 30)")
}

func runSet(cmd *cobra.Command, args []string) error {
	command, err := buildSetCommand(args[1], args[2:])
	if err != nil {
		return err
	}

	reg, dev, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := dev.Communicate(command); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	settle()
	fmt.Printf("%s %s -> %s\n", styled(okStyle, "✓"), command.Method, dev.ID())
	return nil
}

// buildSetCommand maps a property name and its arguments onto a validated
// protocol command. Validation failures surface before any network I/O.
func buildSetCommand(property string, values []string) (*protocol.Command, error) {
	effect := protocol.Effect(effectFlag)

	switch property {
	case "power":
		if len(values) != 1 || (values[0] != "on" && values[0] != "off") {
			return nil, fmt.Errorf("usage: set <light> power on|off")
		}
		return protocol.SetPower(values[0] == "on", effect, durationFlag)

	case "toggle":
		return protocol.Toggle()

	case "bright":
		level, err := intArg(values, 0, "brightness")
		if err != nil {
			return nil, err
		}
		return protocol.SetBrightness(level, effect, durationFlag)

	case "rgb":
		if len(values) != 1 {
			return nil, fmt.Errorf("usage: set <light> rgb <hex|decimal>")
		}
		rgb, err := parseRGB(values[0])
		if err != nil {
			return nil, err
		}
		return protocol.SetRGB(rgb, effect, durationFlag)

	case "hsv":
		if len(values) != 2 {
			return nil, fmt.Errorf("usage: set <light> hsv <hue> <sat>")
		}
		hue, err := intArg(values, 0, "hue")
		if err != nil {
			return nil, err
		}
		sat, err := intArg(values, 1, "saturation")
		if err != nil {
			return nil, err
		}
		return protocol.SetHSV(hue, sat, effect, durationFlag)

	case "ct":
		kelvin, err := intArg(values, 0, "color temperature")
		if err != nil {
			return nil, err
		}
		return protocol.SetColorTemp(kelvin, effect, durationFlag)

	case "name":
		if len(values) != 1 {
			return nil, fmt.Errorf("usage: set <light> name <text>")
		}
		return protocol.SetName(values[0])

	case "default":
		return protocol.SetDefault()

	case "delayoff":
		if len(values) == 1 && values[0] == "cancel" {
			return protocol.CancelDelayOff()
		}
		minutes, err := intArg(values, 0, "minutes")
		if err != nil {
			return nil, err
		}
		return protocol.DelayOff(minutes)

	default:
		return nil, fmt.Errorf("unknown property %q (see 'lumenctl set --help')", property)
	}
}

func intArg(values []string, index int, what string) (int, error) {
	if index >= len(values) {
		return 0, fmt.Errorf("missing %s value", what)
	}
	n, err := strconv.Atoi(values[index])
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", what, values[index])
	}
	return n, nil
}

// parseRGB accepts 6-digit hex (with optional # prefix) or a decimal.
func parseRGB(s string) (int, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 {
		if n, err := strconv.ParseInt(hex, 16, 32); err == nil {
			return int(n), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rgb value %q (want hex like ff8800 or a decimal)", s)
	}
	return n, nil
}

var flowCmd = &cobra.Command{
	Use:   "flow <light> <count> <action> <tuple>... | flow <light> stop",
	Short: "Start or stop a color flow",
	Long: `Start a color flow built from transition tuples, or stop the
running one.

Each tuple is duration,mode,value,brightness:
  duration    milliseconds, >= 50
  mode        1 = color (value is RGB), 2 = temperature (value is kelvin),
              7 = sleep (value and brightness ignored)
  value       per the mode
  brightness  1-100

count is the total number of transitions to run and must be at least the
number of tuples; action is what happens afterwards: recover, stay, or off.`,
	Example: `  # Alternate red and blue four times, then restore
  lumenctl flow desk 4 recover 500,1,16711680,100 500,1,255,100

  # Warm fade to sleep
  lumenctl flow desk 2 off 3000,2,1700,10 5000,7,0,0

  # Stop the running flow
  lumenctl flow desk stop`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFlow,
}

func runFlow(cmd *cobra.Command, args []string) error {
	command, err := buildFlowCommand(args[1:])
	if err != nil {
		return err
	}

	reg, dev, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := dev.Communicate(command); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	settle()
	fmt.Printf("%s %s -> %s\n", styled(okStyle, "✓"), command.Method, dev.ID())
	return nil
}

func buildFlowCommand(args []string) (*protocol.Command, error) {
	if len(args) == 1 && args[0] == "stop" {
		return protocol.StopFlow()
	}
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: flow <light> <count> <action> <tuple>...")
	}

	count, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid count %q", args[0])
	}
	action, err := parseFlowAction(args[1])
	if err != nil {
		return nil, err
	}

	var flow protocol.FlowTransition
	for _, tuple := range args[2:] {
		parts := strings.Split(tuple, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid tuple %q (want duration,mode,value,brightness)", tuple)
		}
		nums := make([]int, 4)
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid tuple %q: %q is not a number", tuple, p)
			}
			nums[i] = n
		}
		if err := flow.Add(nums[0], protocol.FlowMode(nums[1]), nums[2], nums[3]); err != nil {
			return nil, fmt.Errorf("tuple %q: %w", tuple, err)
		}
	}

	return protocol.StartFlow(count, action, &flow)
}

func parseFlowAction(s string) (protocol.FlowAction, error) {
	switch s {
	case "recover":
		return protocol.FlowRecover, nil
	case "stay":
		return protocol.FlowStay, nil
	case "off":
		return protocol.FlowOff, nil
	default:
		return 0, fmt.Errorf("unknown flow action %q (want recover, stay, or off)", s)
	}
}

var musicCmd = &cobra.Command{
	Use:   "music <light>",
	Short: "Hold an interactive music-mode session",
	Long: `Negotiate a music-mode side channel with a light and hold it open.

While the session is up, commands typed as "<property> [value...]" lines
(the same forms 'set' accepts) are sent over the side channel, which the
light applies without rate limiting. An empty line or EOF ends the
session and returns the light to normal mode.`,
	Example: `  lumenctl music desk
  bright 80
  rgb ff0000
  <enter to finish>`,
	Args: cobra.ExactArgs(1),
	RunE: runMusic,
}

func runMusic(cmd *cobra.Command, args []string) error {
	reg, dev, err := resolveTarget(args[0])
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := dev.EnableMusic(localResolver()); err != nil {
		return fmt.Errorf("music mode negotiation failed: %w", err)
	}
	fmt.Printf("%s music mode active on %s\n", styled(okStyle, "✓"), dev.ID())
	fmt.Println(styled(faintStyle, "Type '<property> [value...]' per line; empty line to finish."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		fields := strings.Fields(line)
		command, err := buildSetCommand(fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if err := dev.Communicate(command); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := dev.DisableMusic(); err != nil {
		return fmt.Errorf("leaving music mode: %w", err)
	}
	settle()
	fmt.Println("Music mode ended.")
	return nil
}

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Interactively assign names to lights",
	Long: `Walk through every discovered light and assign it an alias.

Each light in turn is dimmed and then raised to full brightness so you
can tell which one is being named. Enter a name, or leave it empty to
keep the light's id. Names already taken are re-prompted.`,
	RunE: runAlias,
}

func runAlias(cmd *cobra.Command, args []string) error {
	reg, err := discoverAll()
	if err != nil {
		return err
	}
	defer reg.Close()

	fmt.Printf("Found %d light(s). The light being named glows at full brightness.\n\n", len(reg.Devices()))

	scanner := bufio.NewScanner(os.Stdin)
	provider := func(collision bool) string {
		if collision {
			fmt.Print("That name is taken, try another: ")
		} else {
			fmt.Print("Name this light (empty keeps its id): ")
		}
		if !scanner.Scan() {
			return ""
		}
		return scanner.Text()
	}

	if err := reg.AssignAliases(provider); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(styled(headerStyle, "Assigned aliases:"))
	for alias, id := range reg.Aliases() {
		fmt.Printf("  %-20s %s\n", alias, id)
	}
	fmt.Println()
	fmt.Println(styled(faintStyle, "Aliases last for this run; rediscovery in a new run starts fresh."))
	return nil
}
