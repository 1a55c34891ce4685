package cmd

import (
	"log"
	"time"

	"github.com/roffe/i7565/pkg/mqttbridge"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mqttCmd)
	f := mqttCmd.Flags()
	f.String("broker", "tcp://localhost:1883", "mqtt broker url")
	f.String("client-id", "i7565-bridge", "mqtt client id")
	f.String("username", "", "mqtt username")
	f.String("password", "", "mqtt password")
	f.String("prefix", "i7565", "topic prefix")
	f.Uint8("qos", 0, "mqtt qos")
	f.Duration("interval", 5*time.Millisecond, "poll interval")
}

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "bridge CAN frames to and from an MQTT broker",
	Long: `Publish received extended frames to <prefix>/rx/<ID> and send
messages arriving on <prefix>/tx/<ID> on the bus`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		broker, _ := f.GetString("broker")
		clientID, _ := f.GetString("client-id")
		username, _ := f.GetString("username")
		password, _ := f.GetString("password")
		prefix, _ := f.GetString("prefix")
		qos, _ := f.GetUint8("qos")
		debug, _ := f.GetBool(flagDebug)

		drv, err := initDriver(cmd)
		if err != nil {
			return err
		}
		defer drv.Close()

		b := mqttbridge.New(drv, mqttbridge.Config{
			Broker:       broker,
			ClientID:     clientID,
			Username:     username,
			Password:     password,
			TopicPrefix:  prefix,
			QoS:          qos,
			PollInterval: pollInterval(cmd),
			Debug:        debug,
		})
		if err := b.Connect(); err != nil {
			return err
		}
		log.Printf("bridging to %s with prefix %q", broker, prefix)
		err = b.Run(cmd.Context())
		published, droppedRx, droppedTx := b.Stats()
		st := drv.Stats()
		log.Printf("published: %d dropped rx: %d dropped tx: %d, %s", published, droppedRx, droppedTx, st.String())
		return err
	},
}
