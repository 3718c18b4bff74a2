package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received. topic has the
// queue's TopicPrefix removed.
type Handler func(topic string, payload []byte)

// Queue dispatches messages of an MQTT client to handlers subscribed
// by topic pattern. All topics are relative to TopicPrefix.
type Queue struct {
	Client      paho.Client
	TopicPrefix string

	lock sync.RWMutex
	subs map[string][]*Subscription
}

// Subscription is a handler subscribed to a topic pattern.
type Subscription struct {
	queue   *Queue
	pattern string
	handler Handler
}

// MatchTopic matches topic with pattern which may contain + and # wildcards.
func MatchTopic(topic, pattern string) bool {
	for {
		p, restP, moreP := strings.Cut(pattern, "/")
		if p == "#" && !moreP {
			return true
		}
		t, restT, moreT := strings.Cut(topic, "/")
		if p != "+" && p != t {
			return false
		}
		if !moreP || !moreT {
			return moreP == moreT
		}
		pattern, topic = restP, restT
	}
}

// ClientOptionsFromURL creates ClientOptions from URL, the path of the URL
// is the topic prefix. Scheme mqtt is plain TCP and mqtts is TLS, others
// are passed to paho as is. Query client-id sets the client ID.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{
		TopicPrefix: topicPrefix,
		subs:        make(map[string][]*Subscription),
	}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("MQTT connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

func wait(token paho.Token) error {
	token.Wait()
	return token.Error()
}

// Connect connects the client and waits for the result.
func (q *Queue) Connect() error {
	return wait(q.Client.Connect())
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub adds handler for pattern. The broker subscription is made for the
// first handler of a pattern.
func (q *Queue) Sub(pattern string, handler Handler) (*Subscription, error) {
	sub := &Subscription{queue: q, pattern: pattern, handler: handler}
	if q.add(sub) {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+pattern)
		if err := wait(q.Client.Subscribe(q.TopicPrefix+pattern, 1, q.dispatch)); err != nil {
			q.remove(sub)
			return nil, err
		}
	}
	return sub, nil
}

// Pub publishes to a topic and waits for the result.
func (q *Queue) Pub(topic string, payload []byte) error {
	return wait(q.Client.Publish(q.TopicPrefix+topic, 1, false, payload))
}

func (q *Queue) add(sub *Subscription) (first bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	first = len(q.subs[sub.pattern]) == 0
	q.subs[sub.pattern] = append(q.subs[sub.pattern], sub)
	return
}

func (q *Queue) remove(sub *Subscription) (last bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	subs := q.subs[sub.pattern]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(q.subs, sub.pattern)
		return true
	}
	q.subs[sub.pattern] = subs
	return false
}

func (q *Queue) onConnect(c paho.Client) {
	glog.Info("MQTT connected")
	filters := make(map[string]byte)
	q.lock.RLock()
	for pattern := range q.subs {
		filters[q.TopicPrefix+pattern] = 1
	}
	q.lock.RUnlock()
	if len(filters) > 0 {
		c.SubscribeMultiple(filters, q.dispatch)
	}
}

func (q *Queue) handlers(topic string) (handlers []Handler) {
	q.lock.RLock()
	defer q.lock.RUnlock()
	for pattern, subs := range q.subs {
		if MatchTopic(topic, pattern) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	return
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	payload := msg.Payload()
	for _, h := range q.handlers(topic) {
		h(topic, payload)
	}
}

// Close removes the handler, the broker subscription is dropped with
// the last handler of the pattern.
func (s *Subscription) Close() error {
	if !s.queue.remove(s) {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.pattern)
	return wait(s.queue.Client.Unsubscribe(s.queue.TopicPrefix + s.pattern))
}
