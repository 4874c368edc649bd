// Command honeypot runs the full S7-1200 impersonation: a simulated
// process model, its register projection, the Modbus/TCP front-end on
// :502, the internal Modbus server it relays to, and the S7comm
// responder on :102. It exits 0 on a clean SIGINT/SIGTERM shutdown and 1
// if any listener fails to bind.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/honeylog"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/mbfront"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/mbserverinternal"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/procmodel"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/regimage"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/s7comm"
)

// processSeed matches the original fixed-seed boot state (spec.md §4.A) so
// a fresh process always starts from the same simulated plant.
const processSeed = 1337

func main() {
	noSelfTest := flag.Bool("no-selftest", false, "skip the internal Modbus server self-test on startup")
	flag.Parse()

	root := honeylog.New()
	log := honeylog.Component(root, "main")

	model := procmodel.New(processSeed)
	img := regimage.New()
	img.WriteBatch(regimage.Project(model.Snapshot()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go procmodel.RunScanLoop(ctx, model, honeylog.Component(root, "procmodel"))
	go regimage.RunProjectionLoop(ctx, model, img, honeylog.Component(root, "regimage"))

	internalServer, err := mbserverinternal.Start(img, honeylog.Component(root, "mbserver-internal"))
	if err != nil {
		log.WithError(err).Fatal("failed to start internal Modbus server")
	}
	defer internalServer.Stop()

	if !*noSelfTest {
		mbserverinternal.SelfTest(honeylog.Component(root, "mbserver-internal"))
	}

	front := mbfront.New(mbserverinternal.ListenAddr, honeylog.Component(root, "mbfront"))
	go func() {
		if err := front.ListenAndServe(); err != nil {
			log.WithError(err).Fatal("failed to start Modbus front-end")
		}
	}()

	responder := s7comm.New(honeylog.Component(root, "s7comm"))
	go func() {
		if err := responder.ListenAndServe(); err != nil {
			log.WithError(err).Fatal("failed to start S7comm responder")
		}
	}()

	log.Info("honeypot up: Modbus front-end on :502, S7comm on :102")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutdown signal received, stopping")
	cancel()

	// Give the background loops a moment to observe ctx.Done() before
	// the process exits; the listeners themselves have no graceful
	// drain path and are torn down by process exit.
	time.Sleep(100 * time.Millisecond)
}
