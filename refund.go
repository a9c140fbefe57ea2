package main

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/opennft/nfr/store"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v4"
	"go.uber.org/zap"
)

const prefixTransferPayload = "TRANSFERS:PENDING:"

// Transfer is one refund instruction handed to the external value rail.
// The registry never observes whether it settles.
type Transfer struct {
	TraceId   string    `msgpack:"t" json:"trace_id"`
	Account   string    `msgpack:"a" json:"account"`
	Amount    string    `msgpack:"m" json:"amount"`
	CreatedAt time.Time `msgpack:"c" json:"created_at"`
}

// RefundWorker executes scheduled refunds asynchronously: each one is
// journaled under its own trace id for the transfer rail to pick up.
type RefundWorker struct {
	logger *zap.Logger
	store  *store.BadgerStore
	exp    int32
	queue  chan pendingRefund
	wg     sync.WaitGroup
}

type pendingRefund struct {
	account string
	amount  uint64
}

func NewRefundWorker(ctx context.Context, logger *zap.Logger, bs *store.BadgerStore, exponent int32) *RefundWorker {
	rw := &RefundWorker{
		logger: logger,
		store:  bs,
		exp:    exponent,
		queue:  make(chan pendingRefund, 1024),
	}
	go rw.loop(ctx)
	return rw
}

func (rw *RefundWorker) ScheduleRefund(account string, amount uint64) {
	rw.wg.Add(1)
	rw.queue <- pendingRefund{account: account, amount: amount}
}

// Drain blocks until every scheduled refund has been journaled.
func (rw *RefundWorker) Drain() {
	rw.wg.Wait()
}

func (rw *RefundWorker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-rw.queue:
			err := rw.handleRefund(r)
			if err != nil {
				panic(err)
			}
			rw.wg.Done()
		}
	}
}

func (rw *RefundWorker) handleRefund(r pendingRefund) error {
	traceId, err := uuid.NewV4()
	if err != nil {
		return err
	}
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(r.amount), -rw.exp)
	tx := &Transfer{
		TraceId:   traceId.String(),
		Account:   r.account,
		Amount:    amount.String(),
		CreatedAt: time.Now(),
	}
	val, err := msgpack.Marshal(tx)
	if err != nil {
		return err
	}
	key := append([]byte(prefixTransferPayload), traceId.Bytes()...)
	err = rw.store.WriteProperty(key, val)
	if err != nil {
		return err
	}
	rw.logger.Info("refund scheduled",
		zap.String("trace", tx.TraceId),
		zap.String("account", tx.Account),
		zap.String("amount", tx.Amount))
	return nil
}
