package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/urfave/cli/v2"

	"travel/internal/config"
	"travel/internal/infrastructure/broker"
)

const consumerGroup = "dlq-cli"

func newKafkaHandler() (*Handler, error) {
	cfg := config.FromEnv()
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}

	logger := watermill.NewStdLogger(cfg.WatermillDebug, false)

	sub, err := broker.NewKafkaSubscriber(logger, cfg.KafkaBrokers, consumerGroup)
	if err != nil {
		return nil, err
	}

	pub, err := broker.NewKafkaPublisher(logger, cfg.KafkaBrokers)
	if err != nil {
		return nil, err
	}

	return NewHandler(sub, pub, cfg.DLQTopic, cfg.BookingsTopic, logger), nil
}

func main() {
	app := &cli.App{
		Name:  "dlq",
		Usage: "Manage booking events in the dead letter topic",
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: func(c *cli.Context) error {
					h, err := newKafkaHandler()
					if err != nil {
						return err
					}

					messages, err := h.Preview(c.Context)
					if err != nil {
						return err
					}

					for _, m := range messages {
						fmt.Printf("%v\t%v\t%v\n", m.ID, m.EventType, m.Reason)
					}

					return nil
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: func(c *cli.Context) error {
					h, err := newKafkaHandler()
					if err != nil {
						return err
					}

					return h.Remove(c.Context, c.Args().First())
				},
			},
			{
				Name:      "replay",
				ArgsUsage: "<message_id>",
				Usage:     "publish message to the bookings topic again",
				Action: func(c *cli.Context) error {
					h, err := newKafkaHandler()
					if err != nil {
						return err
					}

					return h.Replay(c.Context, c.Args().First())
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
