package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Метаданные платёжного намерения — единственное место, где процессор хранит
// состав заказа между созданием намерения и вебхуком. API процессора принимает
// только строковые значения, поэтому кодирование/декодирование собрано здесь,
// а не размазано по вызывающим местам.
const (
	metadataKeyAccountID   = "accountId"
	metadataKeyDiscountIDs = "discount_ids"
)

// IntentMetadata — расшифрованный состав заказа из метаданных намерения.
type IntentMetadata struct {
	AccountID   *uuid.UUID
	DiscountIDs []string
	Counts      map[string]int
}

// encodeIntentMetadata сериализует состав заказа в строковые метаданные.
// Нулевые количества не кодируются.
func encodeIntentMetadata(accountID uuid.UUID, discountIDs []string, counts map[string]int) map[string]string {
	metadata := map[string]string{
		metadataKeyAccountID: accountID.String(),
	}
	if len(discountIDs) > 0 {
		metadata[metadataKeyDiscountIDs] = strings.Join(discountIDs, ",")
	}
	for purchaseTypeID, count := range counts {
		if count > 0 {
			metadata[purchaseTypeID] = strconv.Itoa(count)
		}
	}
	return metadata
}

// decodeIntentMetadata восстанавливает состав заказа из метаданных вебхука.
// Все ключи кроме зарезервированных трактуются как идентификаторы типов покупок.
func decodeIntentMetadata(metadata map[string]string) (*IntentMetadata, error) {
	decoded := &IntentMetadata{Counts: make(map[string]int)}

	for key, value := range metadata {
		switch key {
		case metadataKeyAccountID:
			id, err := uuid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("invalid account id in metadata: %w", err)
			}
			decoded.AccountID = &id
		case metadataKeyDiscountIDs:
			if value != "" {
				decoded.DiscountIDs = strings.Split(value, ",")
			}
		default:
			count, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid count for purchase type %s: %w", key, err)
			}
			if count < 0 {
				return nil, fmt.Errorf("negative count for purchase type %s", key)
			}
			if count > 0 {
				decoded.Counts[key] = count
			}
		}
	}

	return decoded, nil
}
