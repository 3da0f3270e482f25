package node

import (
	log "github.com/sirupsen/logrus"

	"synctext/datamodel/update"
	"synctext/net/fifo"
)

// broadcast delivers one update to every registered peer except
// ourselves. Delivery is at most once: a peer whose channel is absent,
// reader-less or full loses the update permanently.
func (n *Node) broadcast(upd *update.Update) {
	rec, err := upd.MarshalBinary()
	if err != nil {
		log.Errorf("Failed to encode update: %v", err)
		return
	}

	for _, peer := range n.Registry.Peers(n.UserID) {
		if err := fifo.AtPath(peer.Address).WriteRecord(rec); err != nil {
			log.Warnf("Dropping update for peer %s: %v", peer.UserID, err)
		}
	}
}
