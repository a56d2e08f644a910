package redis

import (
	"fmt"

	"github.com/mcoot/stockgame/internal/model"
)

// Key prefix for all stock game data
const keyPrefix = "stockgame"

// playerKey returns the Redis key for a Player record
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the ZSET of player IDs scored by creation time
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// stockKey returns the Redis key for a Stock record
func stockKey(id model.StockID) string {
	return fmt.Sprintf("%s:stock:%s", keyPrefix, id)
}

// stockNameIndexKey returns the Redis key for the name -> stock_id index
func stockNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:stock_name:%s", keyPrefix, name)
}

// stocksIndexKey returns the ZSET of stock IDs scored by creation time
func stocksIndexKey() string {
	return fmt.Sprintf("%s:idx:stocks", keyPrefix)
}

// holdingsKey returns the HASH of stock_id -> quantity for one player
func holdingsKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:holdings:%s", keyPrefix, playerID)
}

// stockHoldersIndexKey returns the SET of players holding a stock
func stockHoldersIndexKey(stockID model.StockID) string {
	return fmt.Sprintf("%s:idx:stock_holders:%s", keyPrefix, stockID)
}
