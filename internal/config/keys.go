package config

// Process-wide property keys owned by the messaging client library and the
// broker discovery mechanism.
const (
	NamesrvAddrProperty = "rocketmq.namesrv.addr"
	VIPChannelProperty  = "com.rocketmq.sendMessageWithVIPChannel"
)

// Environment fallbacks.
const (
	NamesrvAddrEnv   = "NAMESRV_ADDR"
	VIPChannelEnv    = "ROCKETMQ_SEND_MESSAGE_WITH_VIP_CHANNEL"
	AccessKeyEnv     = "access.key"
	SecretKeyEnv     = "secret.key"
	LoginRequiredEnv = "login.required"
)

const (
	DefaultDataPath   = "/tmp/rocketmq-console/data"
	DefaultVIPChannel = "true"

	dashboardDir = "dashboard"
)
