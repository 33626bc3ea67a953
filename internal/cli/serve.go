package cli

import (
	"fmt"
	"log"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/spf13/cobra"
)

func NewServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, store, err := openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)
			if port != "" {
				cfg.App.Port = port
			}

			// --- Initialize RabbitMQ Client ---
			var publisher services.EventPublisher
			if mqClient := connectRabbitMQ(cfg.RabbitMQ); mqClient != nil {
				defer mqClient.Close() // Ensure the connection is closed on exit
				publisher = mqClient
				if err := mqClient.ConsumeOrderEvents(services.HandleOrderEvent); err != nil {
					log.Printf("Failed to start RabbitMQ consumer: %v", err)
				}
			}

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			app := server.New(server.Options{
				Store:             store,
				Publisher:         publisher,
				JWTSecret:         cfg.JWT.Secret,
				JWTTTL:            cfg.JWT.TTL,
				SessionCookie:     cfg.Session.Cookie,
				SessionExpiration: cfg.Session.Expiration,
				Ping:              sqlDB.Ping,
			})

			// --- Start HTTP Server ---
			errCh := make(chan error, 1)
			go func() {
				log.Printf("Starting server on port %s", cfg.App.Port)
				errCh <- app.Listen(cfg.App.Port)
			}()

			// Wait for interrupt signal to gracefully shut down the server
			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-cmd.Context().Done():
			}

			log.Println("Shutting down server...")
			if err := app.Shutdown(); err != nil {
				log.Printf("Error during Fiber shutdown: %v", err)
			}
			log.Println("Server gracefully stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen address, overrides APP_PORT (e.g. :8080)")
	return cmd
}

// connectRabbitMQ returns nil when events are disabled or the broker is
// unreachable; the shop keeps taking orders either way.
func connectRabbitMQ(cfg config.RabbitMQConfig) *rabbitmq.Client {
	if !cfg.Enabled {
		log.Println("RabbitMQ disabled, order events will not be published")
		return nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{
		URL:      cfg.URL,
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
	})
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, order events will not be published: %v", err)
		return nil
	}
	return client
}
