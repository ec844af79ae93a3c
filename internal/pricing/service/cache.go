package service

import "github.com/shopspring/decimal"

// DefaultCacheSize: сколько рассчитанных цен помнит один калькулятор.
const DefaultCacheSize = 50

// Cache хранит ограниченное число цен; при переполнении вытесняется
// самая ранняя вставка. Чтение порядок не меняет. Не потокобезопасен,
// владелец (Calculator) сериализует доступ.
type Cache struct {
	capacity int
	order    []string
	items    map[string]decimal.Decimal
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		items:    make(map[string]decimal.Decimal, capacity),
	}
}

func (c *Cache) Get(key string) (decimal.Decimal, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Put сохраняет цену. Повторная запись существующего ключа обновляет
// значение, не сдвигая его в очереди.
func (c *Cache) Put(key string, price decimal.Decimal) {
	if _, ok := c.items[key]; ok {
		c.items[key] = price
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.order = append(c.order, key)
	c.items[key] = price
}

func (c *Cache) Clear() {
	c.order = c.order[:0]
	clear(c.items)
}

func (c *Cache) Len() int { return len(c.items) }
