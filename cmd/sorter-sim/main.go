// sorter-sim: simulated embedded sorter device.
//
// Stands in for the real sorter during development: accepts the same
// GET /sort?bin=... signal, keeps per-bin counters, and reports them on
// /stats. Run it and point binsight at localhost.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/binsight/go-binsight/internal/log"
)

var port = flag.String("port", "9090", "listen port")

func main() {
	flag.Parse()
	log.Init("info")

	var mu sync.Mutex
	counts := make(map[string]int)

	app := fiber.New(fiber.Config{
		AppName:               "sorter-sim",
		DisableStartupMessage: true,
	})

	app.Get("/sort", func(c *fiber.Ctx) error {
		bin := c.Query("bin")
		if bin == "" {
			return c.Status(fiber.StatusBadRequest).SendString("missing bin")
		}

		mu.Lock()
		counts[bin]++
		n := counts[bin]
		mu.Unlock()

		log.Info("sort signal", "bin", bin, "total", n)
		fmt.Printf("🗑️  sort → %s (%d so far)\n", bin, n)

		// The real device returns nothing useful; neither do we.
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		mu.Lock()
		defer mu.Unlock()
		return c.JSON(counts)
	})

	fmt.Printf("🔩 sorter-sim listening on :%s\n", *port)
	go func() {
		if err := app.Listen(":" + *port); err != nil {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n👋 Goodbye!")
	app.Shutdown()
}
