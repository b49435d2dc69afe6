package p2p

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"

	"smc/exception"
	"smc/logx"
	"smc/monitoring"
	"smc/transaction"
)

const (
	// TxTopicName is the gossipsub topic all nodes exchange transactions on
	TxTopicName = "smc/transactions/1.0.0"

	// MdnsServiceTag identifies nodes of this network on the local segment
	MdnsServiceTag = "smc-node"
)

// TxReceiveHandler consumes a transaction received from a peer
type TxReceiveHandler func(tx *transaction.Transaction)

// Libp2pNetwork is the gossip transport of the node. Transactions applied
// locally are published to the tx topic; transactions gossiped by peers are
// handed to the registered receive handler.
type Libp2pNetwork struct {
	host    host.Host
	pubsub  *pubsub.PubSub
	txTopic *pubsub.Topic
	txSub   *pubsub.Subscription

	onTxReceived TxReceiveHandler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNetwork starts the libp2p host, joins the transaction topic and wires
// discovery. The node identity is the ledger keypair, so a peer ID is bound
// to the same ed25519 key the node signs with.
func NewNetwork(selfPrivKey ed25519.PrivateKey, listenAddr string, bootstrapPeers []string, enableMdns bool) (*Libp2pNetwork, error) {
	privKey, err := crypto.UnmarshalEd25519PrivateKey(selfPrivKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ed25519 private key: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddr),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	topic, err := ps.Join(TxTopicName)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("failed to join tx topic: %w", err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("failed to subscribe to tx topic: %w", err)
	}

	ln := &Libp2pNetwork{
		host:    h,
		pubsub:  ps,
		txTopic: topic,
		txSub:   sub,
		ctx:     ctx,
		cancel:  cancel,
	}

	ln.connectBootstrapPeers(bootstrapPeers)

	if enableMdns {
		if err := ln.setupMdns(); err != nil {
			logx.Warn("NETWORK", "mDNS discovery unavailable:", err.Error())
		}
	}

	exception.SafeGo("TxTopicHandler", func() {
		ln.handleTxTopic()
	})

	logx.Info("NETWORK", fmt.Sprintf("Libp2p network started with ID: %s", h.ID().String()))
	for _, addr := range h.Addrs() {
		logx.Info("NETWORK", "Listening on:", addr.String())
	}

	return ln, nil
}

// SetTxReceiveHandler registers the callback for inbound transactions. Must
// be called before peers start gossiping.
func (ln *Libp2pNetwork) SetTxReceiveHandler(handler TxReceiveHandler) {
	ln.onTxReceived = handler
}

// HostID returns this node's peer ID
func (ln *Libp2pNetwork) HostID() peer.ID {
	return ln.host.ID()
}

// PeerCount returns the number of connected peers
func (ln *Libp2pNetwork) PeerCount() int {
	return len(ln.host.Network().Peers())
}

// Close tears down the subscription, the topic and the host
func (ln *Libp2pNetwork) Close() error {
	ln.cancel()
	ln.txSub.Cancel()
	if err := ln.txTopic.Close(); err != nil {
		logx.Error("NETWORK", "Failed to close tx topic:", err.Error())
	}
	return ln.host.Close()
}

func (ln *Libp2pNetwork) connectBootstrapPeers(bootstrapPeers []string) {
	for _, addr := range bootstrapPeers {
		if addr == "" {
			continue
		}
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			logx.Error("NETWORK:SETUP", "Invalid bootstrap address:", addr, ", error:", err.Error())
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			logx.Error("NETWORK:SETUP", "Invalid bootstrap peer info:", addr, ", error:", err.Error())
			continue
		}

		peerInfo := *info
		exception.SafeGo("BootstrapConnect", func() {
			if err := ln.host.Connect(ln.ctx, peerInfo); err != nil {
				logx.Warn("NETWORK:SETUP", "Failed to connect bootstrap peer:", peerInfo.ID.String())
				return
			}
			logx.Info("NETWORK", "Connected to bootstrap peer:", peerInfo.ID.String())
			monitoring.SetPeerCount(ln.PeerCount())
		})
	}
}

type mdnsNotifee struct {
	ln *Libp2pNetwork
}

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.ln.host.ID() {
		return
	}
	if err := n.ln.host.Connect(n.ln.ctx, info); err != nil {
		logx.Debug("NETWORK:MDNS", "Failed to connect discovered peer:", info.ID.String())
		return
	}
	logx.Info("NETWORK:MDNS", "Connected to discovered peer:", info.ID.String())
	monitoring.SetPeerCount(n.ln.PeerCount())
}

func (ln *Libp2pNetwork) setupMdns() error {
	service := mdns.NewMdnsService(ln.host, MdnsServiceTag, &mdnsNotifee{ln: ln})
	return service.Start()
}
